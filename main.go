package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-faker/faker/v4"

	"diskbtree/btree"
	"diskbtree/cli"
)

const defaultIndexPath = "demo/index"

var (
	shouldReset    *bool
	shouldSeed     *bool
	seedNumRecords *int
	configPath     *string
)

func eraseIndexFiles(path string) {
	for _, suffix := range []string{".tree", ".data"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			log.Fatal(err)
		}
	}
}

func seedIndex(h *btree.Handle[string, string]) {
	for i := 0; i < *seedNumRecords; i++ {
		k := faker.Word() + faker.Word()
		v := faker.Word() + faker.Word()
		if _, err := h.Insert(k, v); err != nil {
			log.Fatal(err)
		}
	}
}

func main() {
	setupFlags()

	if err := os.MkdirAll("demo", 0755); err != nil {
		log.Fatal(err)
	}
	if *shouldReset {
		eraseIndexFiles(defaultIndexPath)
	}

	var opts []btree.Option[string, string]
	if *configPath != "" {
		cfg, err := btree.LoadConfig(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, btree.WithConfig[string, string](cfg))
	}

	h, err := btree.Open[string, string](
		defaultIndexPath,
		btree.StringCodec{},
		btree.StringCodec{},
		func(a, b string) bool { return a < b },
		opts...,
	)
	if err != nil {
		log.Fatal(err)
	}
	defer h.Close()

	if *shouldSeed {
		seedIndex(h)
	}

	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCli(scanner, h)
	demo.Start()
}

func setupFlags() {
	shouldReset = flag.Bool("reset", false, "Reset the index by erasing its files before startup.")
	shouldSeed = flag.Bool("seed", false, "Seed the index using records created with go-faker.")
	seedNumRecords = flag.Int("records", 1000, "Amount of records to seed the index with upon startup.")
	configPath = flag.String("config", "", "Path to an .ini config file overriding branching factor and log level.")
	flag.Usage = func() {
		fmt.Println("\nB-Tree CLI\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()
}
