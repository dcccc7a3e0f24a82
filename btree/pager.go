package btree

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// noRoot is the explicit "empty tree" sentinel for rootSlot, kept as
// a named constant rather than a bare math.MaxUint64 so it never
// leaks into slot arithmetic by accident.
const noRoot = ^uint64(0)

const headerSize = 2 * 8 // nodeCount, rootSlot; both uint64

// pager owns the two open files backing one Handle: a fixed-slot
// <path>.tree file and an append-only <path>.data file. It is the
// only component in the package that touches *os.File.
type pager[K, V any] struct {
	treeFile *os.File
	dataFile *os.File

	t        int
	maxKeys  int
	nodeSize int64

	nodeCount uint64
	rootSlot  uint64

	keyCodec Codec[K]
	valCodec Codec[V]

	log *logrus.Logger
}

func nodeSizeFor(maxKeys int) int64 {
	// size(u64) + isLeaf(u8) + ownSlot(u64) + children(u64*(maxKeys+2)) + offsets(u64*(maxKeys+1))
	return 8 + 1 + 8 + int64(maxKeys+2)*8 + int64(maxKeys+1)*8
}

func openPager[K, V any](path string, t int, treeSuffix, dataSuffix string, keyCodec Codec[K], valCodec Codec[V], log *logrus.Logger) (*pager[K, V], error) {
	if t < 2 {
		return nil, errors.Errorf("branching factor t must be >= 2, got %d", t)
	}
	treePath, dataPath := path+treeSuffix, path+dataSuffix

	_, treeErr := os.Stat(treePath)
	_, dataErr := os.Stat(dataPath)
	filesExist := treeErr == nil && dataErr == nil

	treeFile, err := os.OpenFile(treePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open tree file %q", treePath)
	}
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		treeFile.Close()
		return nil, errors.Wrapf(err, "open data file %q", dataPath)
	}

	maxKeys := 2*t - 1
	p := &pager[K, V]{
		treeFile: treeFile,
		dataFile: dataFile,
		t:        t,
		maxKeys:  maxKeys,
		nodeSize: nodeSizeFor(maxKeys),
		keyCodec: keyCodec,
		valCodec: valCodec,
		log:      log,
	}

	if !filesExist {
		if err := treeFile.Truncate(0); err != nil {
			return nil, errors.Wrap(err, "truncate tree file")
		}
		if err := dataFile.Truncate(0); err != nil {
			return nil, errors.Wrap(err, "truncate data file")
		}
		p.nodeCount = 1
		p.rootSlot = 0
		root := newLeafNode[K, V](0)
		if err := p.writeNode(root); err != nil {
			return nil, err
		}
		if err := p.writeHeader(); err != nil {
			return nil, err
		}
		p.log.WithField("path", path).Info("created fresh b-tree index")
		return p, nil
	}

	if err := p.readHeader(); err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"path":      path,
		"nodeCount": p.nodeCount,
		"rootSlot":  p.rootSlot,
	}).Info("opened existing b-tree index")
	return p, nil
}

func (p *pager[K, V]) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := p.treeFile.ReadAt(buf, 0); err != nil {
		return errors.Wrap(err, "read header")
	}
	p.nodeCount = binary.LittleEndian.Uint64(buf[0:8])
	p.rootSlot = binary.LittleEndian.Uint64(buf[8:16])
	return nil
}

func (p *pager[K, V]) writeHeader() error {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], p.nodeCount)
	binary.LittleEndian.PutUint64(buf[8:16], p.rootSlot)
	if _, err := p.treeFile.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := p.treeFile.Sync(); err != nil {
		return errors.Wrap(err, "sync tree file after header write")
	}
	return nil
}

// allocateSlot returns the next free slot, growing nodeCount. The
// caller must writeNode at that slot before the next writeHeader, or
// the slot will be resurrected as garbage on reopen.
func (p *pager[K, V]) allocateSlot() uint64 {
	slot := p.nodeCount
	p.nodeCount++
	return slot
}

func (p *pager[K, V]) slotOffset(slot uint64) int64 {
	return headerSize + int64(slot)*p.nodeSize
}

// writeNode appends each entry's encoded bytes to the data file,
// capturing the resulting offsets, then encodes the fixed-width slot
// (header, padded child slots, padded data offsets) into the tree
// file. The data file is flushed before the tree file so that no
// on-disk offset ever points at bytes that aren't yet durable.
func (p *pager[K, V]) writeNode(n *node[K, V]) error {
	offsets := make([]uint64, n.size)
	for i := 0; i < n.size; i++ {
		off, err := p.appendEntry(n.entries[i])
		if err != nil {
			return errors.Wrapf(err, "append entry %d of slot %d", i, n.slot)
		}
		offsets[i] = off
	}
	if err := p.dataFile.Sync(); err != nil {
		return errors.Wrap(err, "sync data file")
	}

	buf := make([]byte, p.nodeSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(n.size))
	if n.isLeaf {
		buf[8] = 1
	}
	binary.LittleEndian.PutUint64(buf[9:17], n.slot)

	childBase := 17
	numChildSlots := p.maxKeys + 2
	for i := 0; i < numChildSlots; i++ {
		var c uint64
		if !n.isLeaf && i < len(n.children) {
			c = n.children[i]
		}
		binary.LittleEndian.PutUint64(buf[childBase+i*8:childBase+i*8+8], c)
	}

	offsetBase := childBase + numChildSlots*8
	numOffsetSlots := p.maxKeys + 1
	for i := 0; i < numOffsetSlots; i++ {
		var o uint64
		if i < len(offsets) {
			o = offsets[i]
		}
		binary.LittleEndian.PutUint64(buf[offsetBase+i*8:offsetBase+i*8+8], o)
	}

	if _, err := p.treeFile.WriteAt(buf, p.slotOffset(n.slot)); err != nil {
		return errors.Wrapf(err, "write slot %d", n.slot)
	}
	if err := p.treeFile.Sync(); err != nil {
		return errors.Wrap(err, "sync tree file")
	}
	p.log.WithFields(logrus.Fields{"slot": n.slot, "size": n.size, "leaf": n.isLeaf}).Debug("wrote node")
	return nil
}

// appendEntry writes one entry's encoded (key, value) bytes to the
// end of the data file and returns the byte offset at which it
// begins. Prior versions of the same entry (from an earlier
// writeNode of the same logical slot) become unreferenced garbage;
// the core specification does not reclaim them (see DESIGN.md).
func (p *pager[K, V]) appendEntry(e Entry[K, V]) (uint64, error) {
	off, err := p.dataFile.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, errors.Wrap(err, "seek to end of data file")
	}
	if err := p.keyCodec.Encode(p.dataFile, e.Key); err != nil {
		return 0, errors.Wrap(err, "encode key")
	}
	if err := p.valCodec.Encode(p.dataFile, e.Value); err != nil {
		return 0, errors.Wrap(err, "encode value")
	}
	return uint64(off), nil
}

// readNode decodes the fixed-width slot at the given index, then
// resolves the first `size` data-file offsets into decoded entries.
func (p *pager[K, V]) readNode(slot uint64) (*node[K, V], error) {
	buf := make([]byte, p.nodeSize)
	if _, err := p.treeFile.ReadAt(buf, p.slotOffset(slot)); err != nil {
		return nil, errors.Wrapf(err, "read slot %d", slot)
	}

	size := int(binary.LittleEndian.Uint64(buf[0:8]))
	isLeaf := buf[8] != 0
	ownSlot := binary.LittleEndian.Uint64(buf[9:17])
	if ownSlot != slot {
		return nil, errors.Errorf("corrupt slot %d: own_slot field reads %d", slot, ownSlot)
	}

	n := &node[K, V]{slot: slot, isLeaf: isLeaf, size: size}

	childBase := 17
	numChildSlots := p.maxKeys + 2
	if !isLeaf {
		n.children = make([]uint64, size+1)
		for i := 0; i <= size; i++ {
			n.children[i] = binary.LittleEndian.Uint64(buf[childBase+i*8 : childBase+i*8+8])
		}
	}

	offsetBase := childBase + numChildSlots*8
	n.entries = make([]Entry[K, V], size)
	for i := 0; i < size; i++ {
		off := binary.LittleEndian.Uint64(buf[offsetBase+i*8 : offsetBase+i*8+8])
		e, err := p.readEntry(off)
		if err != nil {
			return nil, errors.Wrapf(err, "read entry %d of slot %d at offset %d", i, slot, off)
		}
		n.entries[i] = e
	}

	p.log.WithFields(logrus.Fields{"slot": slot, "size": size, "leaf": isLeaf}).Debug("read node")
	return n, nil
}

func (p *pager[K, V]) readEntry(offset uint64) (Entry[K, V], error) {
	sr := io.NewSectionReader(p.dataFile, int64(offset), 1<<62)
	key, err := p.keyCodec.Decode(sr)
	if err != nil {
		return Entry[K, V]{}, errors.Wrap(err, "decode key")
	}
	val, err := p.valCodec.Decode(sr)
	if err != nil {
		return Entry[K, V]{}, errors.Wrap(err, "decode value")
	}
	return Entry[K, V]{Key: key, Value: val}, nil
}

func (p *pager[K, V]) close() error {
	treeErr := p.treeFile.Close()
	dataErr := p.dataFile.Close()
	if treeErr != nil {
		return errors.Wrap(treeErr, "close tree file")
	}
	if dataErr != nil {
		return errors.Wrap(dataErr, "close data file")
	}
	return nil
}
