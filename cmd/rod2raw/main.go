// rod2raw converts RODHyPix files to raw little-endian int32 dumps.
//
// Usage:
//
//	rod2raw [-z] [--info] <input.rodhypix> [<output>]
//
// Options:
//
//	-z       Compress the dump with zstd.
//	--info   Print the merged header mapping instead of converting.
//	-h       Show this help message.
//
// The dump layout is int32 width, int32 height, then row-major int32
// pixels, all little-endian (see rodutil.WriteRaw). When no output path
// is given, ".raw" (or ".raw.zst") is appended to the input path.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mrjoshuak/go-rodhypix/rod"
	"github.com/mrjoshuak/go-rodhypix/rodutil"
)

func main() {
	compress := false
	infoOnly := false
	args := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-z":
			compress = true
		case "--info":
			infoOnly = true
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			args = append(args, arg)
		}
	}

	if len(args) < 1 || len(args) > 2 {
		printUsage()
		os.Exit(2)
	}
	input := args[0]

	if infoOnly {
		if err := printInfo(input); err != nil {
			fmt.Fprintf(os.Stderr, "rod2raw: %v\n", err)
			os.Exit(1)
		}
		return
	}

	output := ""
	if len(args) == 2 {
		output = args[1]
	} else if compress {
		output = input + ".raw.zst"
	} else {
		output = input + ".raw"
	}

	if err := convert(input, output, compress); err != nil {
		fmt.Fprintf(os.Stderr, "rod2raw: %v\n", err)
		os.Exit(1)
	}
}

func convert(input, output string, compress bool) error {
	img, _, err := rod.DecodeFile(input)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}

	if compress {
		err = rodutil.WriteRawZstd(f, img)
	} else {
		err = rodutil.WriteRaw(f, img)
	}
	if err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}

func printInfo(input string) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	h, err := rod.DecodeHeader(data)
	if err != nil {
		return err
	}

	info := h.Info()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-32s %v\n", k, info[k])
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: rod2raw [-z] [--info] <input.rodhypix> [<output>]")
	fmt.Println()
	fmt.Println("Converts a RODHyPix file to a raw little-endian int32 dump.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -z       Compress the dump with zstd")
	fmt.Println("  --info   Print the header mapping and exit")
}
