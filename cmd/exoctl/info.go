package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/kernel/pmm"
	"github.com/joshuapare/exokit/mem"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Boot a machine and report its memory layout",
		Long: `The info command boots a machine and prints the BIOS memory map handed
over by the boot loader, the kernel layout and the page allocator counters.

Example:
  exoctl info
  exoctl info --mem 128 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

type infoOutput struct {
	BootLoaderName string                     `json:"boot_loader_name"`
	Cmdline        string                     `json:"cmdline,omitempty"`
	Regions        []multiboot.MemoryMapEntry `json:"regions"`
	Layout         pmm.Layout                 `json:"layout"`
	Pages          pmm.Stats                  `json:"pages"`
}

func runInfo() error {
	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer m.Close()

	info := m.Kernel().Info()
	layout := m.Config().Layout
	st := m.Kernel().Pages().Stats()

	if jsonOut {
		return printJSON(infoOutput{
			BootLoaderName: info.BootLoaderName,
			Cmdline:        info.Cmdline,
			Regions:        info.Regions,
			Layout:         layout,
			Pages:          st,
		})
	}

	printInfo("\nBoot Information:\n")
	printInfo("  Loader:  %s\n", info.BootLoaderName)
	if info.Cmdline != "" {
		printInfo("  Cmdline: %s\n", info.Cmdline)
	}

	printInfo("\nBIOS-provided physical RAM map:\n")
	info.VisitMemRegions(func(e *multiboot.MemoryMapEntry) bool {
		printInfo("  %s\n", e)
		return true
	})

	printInfo("\nKernel Layout:\n")
	printInfo("  Image:  0x%08x-0x%08x (%s)\n", layout.KernelStart, layout.KernelEnd, mem.Size(layout.KernelSize()))
	printInfo("  Stack:  0x%08x (%s)\n", layout.StackAddr(), mem.Size(layout.StackSize))
	printInfo("  Bitmap: 0x%08x (%d bytes)\n", st.BitmapAddr, st.BitmapSize)

	printInfo("\nPhysical Memory:\n")
	printInfo("  Total:     %s\n", mem.Size(st.MemTotal))
	printInfo("  Available: %s\n", mem.Size(st.MemAvailable))
	printInfo("  Pages:     %d used / %d free / %d total\n", st.UsedPages, st.FreePages, st.MaxPages)

	return nil
}
