// Command wiredump prints the tag tree of a fracwire payload.
//
//	wiredump [-config file] [-encoding ints/lens] [-frame] [-hex] [-v] [-memprofile file] <file|->
//
// With -wrap the input is framed with -codec and written to stdout instead.
package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"

	"github.com/rawbytedev/fracwire/pkg/frame"
)

func initLogger(out io.Writer, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "wiredump").Logger()
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "wiredump: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("wiredump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML or YAML config file")
	encFlag := fs.String("encoding", "", "integer and length encodings, e.g. variable/fixed32")
	frameFlag := fs.Bool("frame", false, "input is wrapped in a frame")
	codecFlag := fs.String("codec", "", "frame codec used by -wrap: none, zstd, snappy or lz4")
	hexFlag := fs.Bool("hex", false, "input is hex text")
	wrap := fs.Bool("wrap", false, "frame the input and write it to stdout")
	verbose := fs.Bool("v", false, "debug logging")
	memProfile := fs.String("memprofile", "", "write a heap profile to this file on exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("expected one input, got %d", fs.NArg())
	}
	log := initLogger(stderr, *verbose)
	if *memProfile != "" {
		defer writeHeapProfile(log, *memProfile)
	}

	s := defaultSettings()
	if *configPath != "" {
		raw, err := loadFileConfig(*configPath)
		if err != nil {
			return err
		}
		if err := raw.apply(&s); err != nil {
			return err
		}
		log.Debug().Str("path", *configPath).Msg("config loaded")
	}
	overrides := fileConfig{Encoding: *encFlag, Codec: *codecFlag, Frame: *frameFlag, Hex: *hexFlag}
	if err := overrides.apply(&s); err != nil {
		return err
	}

	data, err := readInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	if s.hex {
		if data, err = hex.DecodeString(string(bytes.Join(bytes.Fields(data), nil))); err != nil {
			return fmt.Errorf("decode hex input: %w", err)
		}
	}
	log.Debug().Int("bytes", len(data)).Str("encoding", s.enc.String()).Msg("input read")

	if *wrap {
		out, err := frame.Encode(data, frame.Options{Codec: s.codec})
		if err != nil {
			return err
		}
		log.Debug().Str("codec", s.codec.String()).Int("bytes", len(out)).Msg("framed")
		_, err = stdout.Write(out)
		return err
	}
	return dump(stdout, log, s, data)
}

func writeHeapProfile(log zerolog.Logger, path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("heap profile")
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Error().Err(err).Str("path", path).Msg("heap profile")
	}
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func dump(w io.Writer, log zerolog.Logger, s settings, data []byte) error {
	if s.frame {
		f, err := frame.Decode(data, s.limit)
		if err != nil {
			return err
		}
		log.Debug().
			Str("codec", f.Codec.String()).
			Uint8("flags", f.Flags).
			Int("payload", len(f.Payload)).
			Msg("frame unwrapped")
		data = f.Payload
	}
	nodes, err := s.enc.Inspect(data)
	for _, n := range nodes {
		if ferr := n.Format(w); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		log.Error().Err(err).Int("values", len(nodes)).Msg("inspect stopped")
		return err
	}
	log.Info().Int("values", len(nodes)).Int("bytes", len(data)).Msg("done")
	return nil
}
