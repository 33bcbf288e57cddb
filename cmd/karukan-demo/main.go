// Command karukan-demo is a terminal harness standing in for the
// windowing-layer addon (spec §1's "deliberately out of scope" collaborator):
// it reads romaji keystrokes from stdin, drives engine.Engine exactly as a
// real input-method frontend would, and renders the preedit/candidate
// panel to the terminal.
//
// Modeled on the teacher's cmd/test-arranger and cmd/test-orchestrator-arranger:
// a small main driving one subsystem end-to-end, printing banner-separated
// results with plain log/fmt and emoji markers.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/tidwall/pretty"

	"github.com/karukan-ime/karukan/config"
	"github.com/karukan-ime/karukan/dict"
	"github.com/karukan-ime/karukan/engine"
	"github.com/karukan-ime/karukan/learning"
	"github.com/karukan-ime/karukan/neural"
)

func main() {
	configPath := flag.String("config", "", "path to karukan.toml")
	dictPath := flag.String("dict", "", "path to the system dictionary binary")
	userDictDir := flag.String("userdict", "", "directory of Mozc-TSV user dictionaries")
	learningPath := flag.String("learning", "", "path to the learning cache TSV")
	debug := flag.Bool("debug", false, "pretty-print a JSON dump of engine slots after each line")
	flag.Parse()

	cfg, cfgErr := config.Load(*configPath)
	if cfgErr != nil {
		log.Printf("⚠️  config load failed, using defaults: %v", cfgErr)
	}

	sysDict := dict.NewEmpty()
	if *dictPath != "" {
		if d, err := dict.Load(*dictPath); err != nil {
			log.Printf("⚠️  system dictionary load failed, continuing empty: %v", err)
		} else {
			sysDict = d
			log.Printf("📚 system dictionary loaded from %s", *dictPath)
		}
	}

	userDict := dict.NewEmpty()
	if *userDictDir != "" {
		if entries, err := dict.LoadUserDictDir(*userDictDir); err != nil {
			log.Printf("⚠️  user dictionary load failed, continuing empty: %v", err)
		} else {
			userDict = dict.Build(entries)
		}
	}

	var cache *learning.Cache
	if cfg.Learning.Enabled {
		var err error
		cache, err = learning.Load(*learningPath, cfg.Learning.MaxEntries)
		if err != nil {
			log.Printf("⚠️  learning cache load failed, starting empty: %v", err)
		}
	}

	backends := engine.Backends{
		Main:  neural.NewMain(os.Getenv("KARUKAN_BACKEND_URL"), os.Getenv("KARUKAN_BACKEND_KEY"), cfg.Conversion.Model, 0),
		Light: neural.NewLight(os.Getenv("KARUKAN_BACKEND_URL"), os.Getenv("KARUKAN_BACKEND_KEY"), cfg.Conversion.LightModel, 0),
	}

	eng := engine.New(cfg, engine.Dicts{User: userDict, System: sysDict}, cache, backends, nil)

	fmt.Println(color.Cyan.Sprint("karukan-demo — type romaji, Space to convert, digits to pick, Enter to commit, Ctrl+D to quit"))
	fmt.Println(strings.Repeat("━", 40))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		driveLine(eng, scanner.Text())
		render(eng)
		if *debug {
			dumpDebug(eng)
		}
	}

	if learningPath != nil && *learningPath != "" {
		if err := eng.SaveLearning(*learningPath); err != nil {
			log.Printf("⚠️  failed to save learning cache: %v", err)
		}
	}
}

// driveLine feeds one line of demo input through ProcessKey: a line of
// plain letters/digits is typed character by character; the tokens
// "<space>", "<enter>", "<esc>", "<bs>" drive the corresponding named key.
func driveLine(eng *engine.Engine, line string) {
	for _, tok := range strings.Fields(line) {
		switch tok {
		case "<space>":
			eng.ProcessKey(engine.KeySpace, 0, false)
		case "<enter>":
			eng.ProcessKey(engine.KeyReturn, 0, false)
		case "<esc>":
			eng.ProcessKey(engine.KeyEscape, 0, false)
		case "<bs>":
			eng.ProcessKey(engine.KeyBackSpace, 0, false)
		default:
			for _, r := range tok {
				eng.ProcessKey(uint32(r), 0, false)
			}
		}
	}
}

func render(eng *engine.Engine) {
	slots := eng.Slots()
	if slots.HasCommit {
		fmt.Println(color.Green.Sprintf("commit: %s", slots.Commit))
	}
	if slots.HasPreedit {
		fmt.Println(color.Yellow.Sprintf("preedit: %s (caret %d)", slots.Preedit, slots.Caret))
	}
	if slots.HasAux {
		fmt.Println(color.Gray.Sprintf("aux: %s", slots.Aux))
	}
	if slots.HasCandidates && !slots.ShouldHideCandidates {
		page, localCursor := slots.Candidates.Page()
		for i, c := range page {
			marker := "  "
			if i == localCursor {
				marker = color.Magenta.Sprint("> ")
			}
			fmt.Printf("%s%d. %s %s\n", marker, i+1, c.Surface, c.Source.Annotation())
		}
	}
}

func dumpDebug(eng *engine.Engine) {
	raw, err := json.Marshal(eng.Slots())
	if err != nil {
		log.Printf("⚠️  debug dump failed: %v", err)
		return
	}
	fmt.Println(string(pretty.Color(pretty.Pretty(raw), nil)))
}
