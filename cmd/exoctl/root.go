package main

import (
	"fmt"
	"log/slog"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/internal/machine"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool

	// Machine flags
	memMiB      int
	kernelStart uint32
	kernelSize  uint32
	stackSize   uint32
	cmdline     string
	kernelOnly  bool
)

var rootCmd = &cobra.Command{
	Use:   "exoctl",
	Short: "Boot and inspect a simulated exokernel memory core",
	Long: `exoctl boots a simulated machine (physical memory, boot information,
kernel page allocator and the library OS SLAB allocator) and reports on it.
Every command powers on a fresh machine configured by the global flags.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		initLogging()
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	// Machine flags
	def := machine.DefaultConfig()
	rootCmd.PersistentFlags().IntVar(&memMiB, "mem", def.MemMiB, "Installed memory in MiB")
	rootCmd.PersistentFlags().
		Uint32Var(&kernelStart, "kernel-start", def.Layout.KernelStart, "Physical address of the kernel image")
	rootCmd.PersistentFlags().
		Uint32Var(&kernelSize, "kernel-size", def.Layout.KernelSize(), "Size of the kernel image in bytes")
	rootCmd.PersistentFlags().
		Uint32Var(&stackSize, "stack-size", def.Layout.StackSize, "Size of the kernel stack in bytes")
	rootCmd.PersistentFlags().StringVar(&cmdline, "cmdline", "", "Kernel command line passed by the boot loader")
	rootCmd.PersistentFlags().BoolVar(&kernelOnly, "kernel-only", false, "Boot the kernel without the library OS")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// initLogging installs the logger from EXOKIT_LOG; --verbose turns on debug
// logging when the variable is unset.
func initLogging() {
	opts := logger.FromEnv()
	if verbose && !opts.Enabled {
		opts = logger.Options{Enabled: true, Level: slog.LevelDebug}
	}
	logger.Init(opts)
}

// machineConfig builds the machine configuration from the global flags.
func machineConfig() machine.Config {
	cfg := machine.DefaultConfig()
	cfg.MemMiB = memMiB
	cfg.Layout.KernelStart = kernelStart
	cfg.Layout.KernelEnd = kernelStart + kernelSize
	cfg.Layout.StackSize = stackSize
	cfg.Cmdline = cmdline
	cfg.NoLibOS = kernelOnly
	return cfg
}

// bootMachine powers on a machine configured by the global flags.
func bootMachine() (*machine.Machine, error) {
	cfg := machineConfig()
	printVerbose("Booting %d MiB machine, kernel at %#x (%d bytes)\n",
		cfg.MemMiB, cfg.Layout.KernelStart, cfg.Layout.KernelSize())

	m, err := machine.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to boot machine: %w", err)
	}
	return m, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
