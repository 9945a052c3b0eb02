package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"soundmark/align"
	"soundmark/engine"
	"soundmark/index"
)

func openEngine() (*engine.Engine, *index.SQLiteIndex, error) {
	idx, err := index.NewSQLiteIndex(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}
	return engine.New(idx), idx, nil
}

func recognizeFile(path string) {
	e, idx, err := openEngine()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer idx.Close()

	start := time.Now()
	match, err := e.Recognize(engine.File(path))
	elapsed := time.Since(start)
	if err != nil {
		fmt.Println("error recognizing:", err)
		return
	}

	printMatch(match, elapsed)
}

func recognizeMic(seconds float64) {
	e, idx, err := openEngine()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer idx.Close()

	color.Yellow("listening for %.0fs...", seconds)
	start := time.Now()
	match, err := e.Recognize(engine.Mic(seconds))
	elapsed := time.Since(start)
	if err != nil {
		fmt.Println("error recognizing:", err)
		return
	}

	printMatch(match, elapsed)
}

func printMatch(match *align.Match, elapsed time.Duration) {
	if match == nil {
		color.Red("no match found (search took %s)", elapsed)
		return
	}
	color.Green("match: %s (confidence %d, offset %.2fs, search took %s)",
		match.Name, match.Confidence, match.OffsetSeconds, elapsed)
}

func indexPath(path string, workers int) {
	e, idx, err := openEngine()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer idx.Close()

	if workers > 0 {
		e = engine.New(idx, engine.WithWorkers(workers))
	}

	info, err := os.Stat(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	if !info.IsDir() {
		if err := e.IndexFile(path, ""); err != nil {
			fmt.Printf("error indexing %s: %v\n", path, err)
			return
		}
		color.Green("indexed %s", path)
		return
	}

	bar := progressbar.Default(-1, "indexing")
	defer bar.Close()

	summary, err := e.IndexDirectory(path, []string{".wav", ".mp3"})
	if err != nil {
		fmt.Println("error indexing directory:", err)
		return
	}
	bar.Add(summary.Indexed + summary.Skipped + summary.Failed)

	fmt.Printf("indexed %d, skipped %d, failed %d\n", summary.Indexed, summary.Skipped, summary.Failed)
}

func listRecordings() {
	_, idx, err := openEngine()
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer idx.Close()

	recs, err := idx.GetRecordings()
	if err != nil {
		fmt.Println("error listing recordings:", err)
		return
	}

	for _, r := range recs {
		fmt.Printf("%d\t%s\tfingerprinted=%v\n", r.ID, r.Name, r.Fingerprinted)
	}
}
