package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"diskbtree/btree"
)

// Cli is an interactive REPL over a string-keyed, string-valued
// Handle, in the same spirit as the upstream project's SET/DEL/GET
// loop, extended with the ordered operations a disk-backed index adds
// over an in-memory one.
type Cli struct {
	scanner    *bufio.Scanner
	handle     *btree.Handle[string, string]
	visualizer *btree.Visualizer[string, string]
}

func NewCli(s *bufio.Scanner, h *btree.Handle[string, string]) *Cli {
	v := btree.NewVisualizer[string, string](os.Stdout, func(k string) string { return k })
	return &Cli{scanner: s, handle: h, visualizer: v}
}

func (c *Cli) Start() {
	c.printHelp()
	c.printPrompt()
	for c.scanner.Scan() {
		c.processInput(c.scanner.Text())
		c.printPrompt()
	}
}

func (c *Cli) printHelp() {
	fmt.Println(`
B-Tree CLI

Available Commands:
  SET <key> <val>       Insert a key-value pair
  UPDATE <key> <val>    Overwrite the value for an existing key
  DEL <key>             Remove a key-value pair
  GET <key>             Retrieve the value for key
  RANGE <lo> <hi>       List entries with lo <= key < hi
  VALIDATE              Check every B-tree invariant
  VISUALIZE             Print the tree structure
  EXIT                  Terminate this session
`)
}

func (c *Cli) printPrompt() {
	fmt.Print("> ")
}

func (c *Cli) processInput(line string) {
	fields := strings.Fields(line)
	if len(fields) < 1 {
		return
	}
	command := strings.ToLower(fields[0])
	switch command {
	default:
		fmt.Printf("Unknown command %q\n", command)
	case "set":
		c.processSetCommand(fields[1:])
	case "update":
		c.processUpdateCommand(fields[1:])
	case "del":
		c.processDeleteCommand(fields[1:])
	case "get":
		c.processGetCommand(fields[1:])
	case "range":
		c.processRangeCommand(fields[1:])
	case "validate":
		c.processValidateCommand()
	case "visualize":
		c.processVisualizeCommand()
	case "exit":
		os.Exit(0)
	}
}

func (c *Cli) processSetCommand(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: SET <key> <value>")
		return
	}
	inserted, err := c.handle.Insert(args[0], args[1])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if !inserted {
		fmt.Println("Key already exists; use UPDATE to overwrite it.")
		return
	}
	fmt.Println("OK")
}

func (c *Cli) processUpdateCommand(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: UPDATE <key> <value>")
		return
	}
	updated, err := c.handle.Update(args[0], args[1])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if !updated {
		fmt.Println("Key not found.")
		return
	}
	fmt.Println("OK")
}

func (c *Cli) processDeleteCommand(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: DEL <key>")
		return
	}
	erased, err := c.handle.Erase(args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if !erased {
		fmt.Println("Key not found.")
		return
	}
	fmt.Println("OK")
}

func (c *Cli) processGetCommand(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: GET <key>")
		return
	}
	val, found, err := c.handle.At(args[0])
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	if !found {
		fmt.Println("Key not found.")
		return
	}
	fmt.Println(val)
}

func (c *Cli) processRangeCommand(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: RANGE <lo> <hi>")
		return
	}
	it, err := c.handle.Range(args[0], args[1], true, false)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	count := 0
	for it.Valid() {
		fmt.Printf("%s = %s\n", it.Key(), it.Value())
		count++
		it.Next()
	}
	if err := it.Err(); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println(strconv.Itoa(count), "entries")
}

func (c *Cli) processValidateCommand() {
	if err := c.handle.Validate(); err != nil {
		fmt.Println("INVALID:", err)
		return
	}
	fmt.Println("OK: tree satisfies all invariants")
}

func (c *Cli) processVisualizeCommand() {
	if err := c.visualizer.Print(c.handle); err != nil {
		fmt.Println("Error:", err)
	}
}
