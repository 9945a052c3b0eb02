package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	dbPath   = "soundmark.db"
	songsDir = "songs"
)

func main() {
	_ = os.MkdirAll(songsDir, 0o755)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "recognize":
		if len(os.Args) < 3 {
			fmt.Println("usage: soundmark recognize <path_to_audio_file>")
			os.Exit(1)
		}
		recognizeFile(os.Args[2])

	case "mic":
		micCmd := flag.NewFlagSet("mic", flag.ExitOnError)
		seconds := micCmd.Float64("seconds", 5, "seconds to record before matching")
		micCmd.Parse(os.Args[2:])
		recognizeMic(*seconds)

	case "index":
		indexCmd := flag.NewFlagSet("index", flag.ExitOnError)
		workers := indexCmd.Int("workers", 0, "worker count (0 = number of CPUs)")
		indexCmd.Parse(os.Args[2:])
		if indexCmd.NArg() < 1 {
			fmt.Println("usage: soundmark index [-workers N] <path_to_file_or_dir>")
			os.Exit(1)
		}
		indexPath(indexCmd.Arg(0), *workers)

	case "list":
		listRecordings()

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: soundmark <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  recognize <audio_file>          match a file against the index")
	fmt.Println("  mic [-seconds 5]                 record from the microphone and match")
	fmt.Println("  index [-workers N] <file_or_dir> index audio file(s) into the index")
	fmt.Println("  list                             list indexed recordings")
}
