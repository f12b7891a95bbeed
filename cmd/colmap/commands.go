package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colmap/pkg/codec"
	"github.com/ajitpratap0/colmap/pkg/column"
	"github.com/ajitpratap0/colmap/pkg/compression"
	"github.com/ajitpratap0/colmap/pkg/config"
	"github.com/ajitpratap0/colmap/pkg/logger"
)

type rootOptions struct {
	configFile string
	envFile    string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "colmap",
		Short: "colmap - column entity mapping toolkit",
		Long: `colmap converts Go entities to storage-agnostic column entities.
This tool manages colmap configuration and encodes, decodes and inspects
column entity frames.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Environment file read before the configuration (default .env if present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")

	root.AddCommand(
		newVersionCmd(),
		newConfigCmd(opts),
		newEncodeCmd(opts),
		newDecodeCmd(),
		newInspectCmd(),
	)
	return root
}

func (o *rootOptions) setup() error {
	// variables from the env file feed ${VAR} substitution in the config
	if o.envFile == "" {
		_ = godotenv.Load() // a missing .env is fine
	} else if err := godotenv.Load(o.envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", o.envFile, err)
	}

	cfg := config.New()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.Observability.LogLevel = o.logLevel
	}
	o.cfg = cfg

	l, err := logger.New(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Development: cfg.Observability.Development,
		Encoding:    cfg.Observability.LogEncoding,
	})
	if err != nil {
		return err
	}
	logger.Replace(l)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "colmap v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage colmap configuration files",
	}

	var out string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(out, config.New()); err != nil {
				return err
			}
			logger.Info("configuration written", zap.String("path", out))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&out, "out", "o", "colmap.yaml", "Path of the configuration file to write")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration given with --config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configFile == "" {
				return fmt.Errorf("--config is required")
			}
			// setup already loaded and validated the file
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (driver %s, compression %s)\n",
				opts.configFile, opts.cfg.Storage.Driver, opts.cfg.Codec.Compression)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func newEncodeCmd(opts *rootOptions) *cobra.Command {
	var in, out, algorithm string
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a column entity JSON document into a frame",
		Long: `Encode reads a typed column entity document and writes a compressed frame.

Example:
  colmap encode --in owner.json --out owner.cm --compression zstd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := opts.cfg.Codec.CompressionConfig()
			if err != nil {
				return err
			}
			if algorithm != "" {
				if cc.Algorithm, err = compression.ParseAlgorithm(algorithm); err != nil {
					return err
				}
			}
			c, err := codec.NewWithConfig(cc)
			if err != nil {
				return err
			}

			doc, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			e, err := codec.UnmarshalJSON(doc)
			if err != nil {
				return err
			}
			frame, err := c.Encode(e)
			if err != nil {
				return err
			}
			logger.Debug("entity encoded",
				zap.String("entity", e.Name()),
				zap.String("algorithm", string(c.Algorithm())),
				zap.Int("document_bytes", len(doc)),
				zap.Int("frame_bytes", len(frame)))
			return writeOutput(cmd, out, frame)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input document, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output frame, - for stdout")
	cmd.Flags().StringVar(&algorithm, "compression", "", "Compression algorithm; overrides the configuration")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a frame into a column entity JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := readFrame(cmd, in)
			if err != nil {
				return err
			}
			doc, err := codec.MarshalJSON(e)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := gojson.Indent(&pretty, doc, "", "  "); err != nil {
				return err
			}
			pretty.WriteByte('\n')
			return writeOutput(cmd, out, pretty.Bytes())
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input frame, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output document, - for stdout")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the header and column tree of a frame",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, frame, err := readFrame(cmd, in)
			if err != nil {
				return err
			}
			algorithm, err := codec.Inspect(frame)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "frame: version %d, %s, %d bytes\n", codec.Version, algorithm, len(frame))
			fmt.Fprintf(w, "%s (%d columns)\n", e.Name(), e.Size())
			printColumns(w, e.Columns(), 1)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input frame, - for stdin")
	return cmd
}

func printColumns(w io.Writer, cols []column.Column, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, c := range cols {
		switch v := c.Value.(type) {
		case []column.Column:
			fmt.Fprintf(w, "%s%s: entity\n", indent, c.Name)
			printColumns(w, v, depth+1)
		case [][]column.Column:
			fmt.Fprintf(w, "%s%s: %d entities\n", indent, c.Name, len(v))
			for i, item := range v {
				fmt.Fprintf(w, "%s  [%d]\n", indent, i)
				printColumns(w, item, depth+2)
			}
		default:
			fmt.Fprintf(w, "%s%s: %v (%T)\n", indent, c.Name, v, v)
		}
	}
}

func readFrame(cmd *cobra.Command, in string) (*column.Entity, []byte, error) {
	frame, err := readInput(cmd, in)
	if err != nil {
		return nil, nil, err
	}
	c, err := codec.New(nil)
	if err != nil {
		return nil, nil, err
	}
	e, err := c.Decode(frame)
	if err != nil {
		return nil, nil, err
	}
	return e, frame, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
