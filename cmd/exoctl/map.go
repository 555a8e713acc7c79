package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/joshuapare/exokit/internal/machine"
	"github.com/joshuapare/exokit/kernel/pmm"
	"github.com/joshuapare/exokit/mem"
)

var (
	mapFrom  uint32
	mapCount int
	mapWidth int
)

func init() {
	rootCmd.AddCommand(newMapCmd())
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Render the physical page bitmap",
		Long: `The map command boots a machine and draws the page allocator bitmap,
one cell per page frame:

  R  permanently reserved frame (descriptor table, boot information)
  K  kernel image, stack or page bitmap
  S  slab arena pages held by the library OS
  #  other used frame
  .  free frame

Example:
  exoctl map
  exoctl map --from 256 --count 512 --width 32`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap()
		},
	}
	cmd.Flags().Uint32Var(&mapFrom, "from", 0, "First frame to draw")
	cmd.Flags().IntVar(&mapCount, "count", 512, "Number of frames to draw")
	cmd.Flags().IntVar(&mapWidth, "width", 64, "Frames per row")
	return cmd
}

// frameKind classifies one page frame for the map.
type frameKind byte

const (
	kindFree     frameKind = '.'
	kindUsed     frameKind = '#'
	kindReserved frameKind = 'R'
	kindKernel   frameKind = 'K'
	kindSlab     frameKind = 'S'
)

type mapOutput struct {
	From   uint32 `json:"from"`
	Count  int    `json:"count"`
	Frames string `json:"frames"`
}

func runMap() error {
	if mapCount <= 0 || mapWidth <= 0 {
		return fmt.Errorf("count and width must be positive")
	}

	m, err := bootMachine()
	if err != nil {
		return err
	}
	defer m.Close()

	kinds := classifyFrames(m, mapFrom, mapCount)

	if jsonOut {
		return printJSON(mapOutput{From: mapFrom, Count: len(kinds), Frames: string(kinds)})
	}

	printInfo("%s\n", renderMap(kinds, mapFrom, mapWidth, !noColor))
	return nil
}

func classifyFrames(m *machine.Machine, from uint32, count int) []byte {
	layout := m.Config().Layout
	pages := m.Kernel().Pages()
	st := pages.Stats()

	kernelLo := mem.FrameFromAddress(layout.KernelStart)
	kernelHi := mem.FrameFromAddress(st.BitmapAddr + uint32(st.BitmapSize) - 1)

	var arena func(f mem.Frame) bool
	if lo := m.OS(); lo != nil {
		contents := lo.Slab().Stats().Contents
		records := lo.Slab().Stats().Records
		arena = func(f mem.Frame) bool {
			return contents.Contains(f.Address()) || records.Contains(f.Address())
		}
	}

	end := uint64(from) + uint64(count)
	kinds := make([]byte, 0, count)
	pages.VisitFrames(func(f mem.Frame, used bool) bool {
		if uint64(f) >= end {
			return false
		}
		if uint32(f) < from {
			return true
		}
		switch {
		case !used:
			kinds = append(kinds, byte(kindFree))
		case f == pmm.GDTFrame || f == pmm.BootInfoFrame:
			kinds = append(kinds, byte(kindReserved))
		case f >= kernelLo && f <= kernelHi:
			kinds = append(kinds, byte(kindKernel))
		case arena != nil && arena(f):
			kinds = append(kinds, byte(kindSlab))
		default:
			kinds = append(kinds, byte(kindUsed))
		}
		return true
	})
	return kinds
}

func mapStyles(color bool) map[frameKind]lipgloss.Style {
	styles := map[frameKind]lipgloss.Style{
		kindFree:     lipgloss.NewStyle(),
		kindUsed:     lipgloss.NewStyle(),
		kindReserved: lipgloss.NewStyle(),
		kindKernel:   lipgloss.NewStyle(),
		kindSlab:     lipgloss.NewStyle(),
	}
	if !color {
		return styles
	}
	styles[kindFree] = styles[kindFree].Foreground(lipgloss.Color("#666666"))
	styles[kindUsed] = styles[kindUsed].Foreground(lipgloss.Color("#FFA500"))
	styles[kindReserved] = styles[kindReserved].Foreground(lipgloss.Color("#FF4B4B")).Bold(true)
	styles[kindKernel] = styles[kindKernel].Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	styles[kindSlab] = styles[kindSlab].Foreground(lipgloss.Color("#04B575"))
	return styles
}

func renderMap(kinds []byte, from uint32, width int, color bool) string {
	styles := mapStyles(color)
	addrStyle := lipgloss.NewStyle()
	if color {
		addrStyle = addrStyle.Foreground(lipgloss.Color("#00D7FF"))
	}

	var rows []string
	for off := 0; off < len(kinds); off += width {
		row := kinds[off:min(off+width, len(kinds))]
		var b strings.Builder
		b.WriteString(addrStyle.Render(fmt.Sprintf("0x%08x ", mem.Frame(from+uint32(off)).Address())))
		for _, k := range row {
			b.WriteString(styles[frameKind(k)].Render(string(k)))
		}
		rows = append(rows, b.String())
	}

	counts := make(map[frameKind]int)
	for _, k := range kinds {
		counts[frameKind(k)]++
	}
	legend := fmt.Sprintf("R reserved %d  K kernel %d  S slab %d  # used %d  . free %d",
		counts[kindReserved], counts[kindKernel], counts[kindSlab], counts[kindUsed], counts[kindFree])

	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	if color {
		box = box.BorderForeground(lipgloss.Color("#383838"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, box.Render(strings.Join(rows, "\n")), legend)
}
