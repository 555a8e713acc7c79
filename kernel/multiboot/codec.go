package multiboot

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/exokit/internal/buf"
	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrTruncated indicates the info block or memory map ends early.
	ErrTruncated = errors.New("multiboot: truncated structure")

	// ErrBadEntry indicates a memory map entry with an impossible size field.
	ErrBadEntry = errors.New("multiboot: bad memory map entry")
)

// ParseMemoryMap decodes a packed memory map.
func ParseMemoryMap(b []byte) ([]MemoryMapEntry, error) {
	var out []MemoryMapEntry
	for off := 0; off < len(b); {
		size, ok := buf.U32At(b, off)
		if !ok {
			return nil, fmt.Errorf("%w: entry header at %d", ErrTruncated, off)
		}
		if size < entryPayload {
			return nil, fmt.Errorf("%w: size %d at offset %d", ErrBadEntry, size, off)
		}
		body, ok := buf.Slice(b, off+4, int(size))
		if !ok {
			return nil, fmt.Errorf("%w: entry at %d needs %d bytes", ErrTruncated, off, size)
		}
		addr, _ := buf.U64At(body, 0)
		length, _ := buf.U64At(body, 8)
		typ, _ := buf.U32At(body, 16)
		out = append(out, MemoryMapEntry{Addr: addr, Len: length, Type: MemoryType(typ)})
		off += 4 + int(size)
	}
	return out, nil
}

// EncodeMemoryMap packs entries in the boot loader's format.
func EncodeMemoryMap(entries []MemoryMapEntry) []byte {
	b := make([]byte, len(entries)*EntrySize)
	for i, e := range entries {
		off := i * EntrySize
		buf.PutU32At(b, off, entryPayload)
		buf.PutU64At(b, off+4, e.Addr)
		buf.PutU64At(b, off+12, e.Len)
		buf.PutU32At(b, off+20, uint32(e.Type))
	}
	return b
}

// Load reads the info block at physical address addr.
func Load(r io.ReaderAt, addr uint32) (*Info, error) {
	hdr := make([]byte, InfoSize)
	if _, err := r.ReadAt(hdr, int64(addr)); err != nil {
		return nil, fmt.Errorf("%w: info header at %#x: %v", ErrTruncated, addr, err)
	}

	info := &Info{}
	info.Flags, _ = buf.U32At(hdr, offFlags)
	info.MemLower, _ = buf.U32At(hdr, offMemLower)
	info.MemUpper, _ = buf.U32At(hdr, offMemUpper)

	if info.Flags&FlagMemMap != 0 {
		info.MmapLength, _ = buf.U32At(hdr, offMmapLength)
		info.MmapAddr, _ = buf.U32At(hdr, offMmapAddr)
		if _, ok := buf.AddU32(info.MmapAddr, info.MmapLength); !ok {
			return nil, fmt.Errorf("%w: memory map at %#x wraps past 4 GiB", ErrTruncated, info.MmapAddr)
		}

		raw := make([]byte, info.MmapLength)
		if _, err := r.ReadAt(raw, int64(info.MmapAddr)); err != nil {
			return nil, fmt.Errorf("%w: memory map at %#x: %v", ErrTruncated, info.MmapAddr, err)
		}
		regions, err := ParseMemoryMap(raw)
		if err != nil {
			return nil, err
		}
		info.Regions = regions
	}

	if info.Flags&FlagCmdline != 0 {
		ptr, _ := buf.U32At(hdr, offCmdline)
		s, err := readString(r, ptr)
		if err != nil {
			return nil, fmt.Errorf("cmdline: %w", err)
		}
		info.Cmdline = s
	}

	if info.Flags&FlagBootLoaderName != 0 {
		ptr, _ := buf.U32At(hdr, offBootLoaderName)
		s, err := readString(r, ptr)
		if err != nil {
			return nil, fmt.Errorf("boot loader name: %w", err)
		}
		info.BootLoaderName = s
	}

	return info, nil
}

// Write lays info out at physical address addr: the fixed header, then the
// memory map, then the strings. MmapAddr and MmapLength are filled in. It
// returns the number of bytes written.
func Write(w io.WriterAt, addr uint32, info *Info) (int, error) {
	mmap := EncodeMemoryMap(info.Regions)
	cmdline, err := encodeString(info.Cmdline)
	if err != nil {
		return 0, fmt.Errorf("cmdline: %w", err)
	}
	name, err := encodeString(info.BootLoaderName)
	if err != nil {
		return 0, fmt.Errorf("boot loader name: %w", err)
	}

	total := InfoSize + len(mmap) + len(cmdline) + len(name)
	block := make([]byte, total)

	mmapAddr := addr + InfoSize
	cmdAddr := mmapAddr + uint32(len(mmap))
	nameAddr := cmdAddr + uint32(len(cmdline))

	info.MmapAddr = mmapAddr
	info.MmapLength = uint32(len(mmap))

	buf.PutU32At(block, offFlags, info.Flags)
	buf.PutU32At(block, offMemLower, info.MemLower)
	buf.PutU32At(block, offMemUpper, info.MemUpper)
	buf.PutU32At(block, offCmdline, cmdAddr)
	buf.PutU32At(block, offMmapLength, info.MmapLength)
	buf.PutU32At(block, offMmapAddr, mmapAddr)
	buf.PutU32At(block, offBootLoaderName, nameAddr)

	copy(block[InfoSize:], mmap)
	copy(block[InfoSize+len(mmap):], cmdline)
	copy(block[InfoSize+len(mmap)+len(cmdline):], name)

	return w.WriteAt(block, int64(addr))
}

func readString(r io.ReaderAt, addr uint32) (string, error) {
	var raw []byte
	chunk := make([]byte, 64)
	for len(raw) < maxStringLen {
		n, err := r.ReadAt(chunk, int64(addr)+int64(len(raw)))
		if s := buf.CString(chunk[:n]); len(s) < n {
			raw = append(raw, s...)
			return decodeString(raw)
		}
		raw = append(raw, chunk[:n]...)
		if err != nil {
			return "", fmt.Errorf("%w: unterminated string at %#x", ErrTruncated, addr)
		}
	}
	return "", fmt.Errorf("%w: string at %#x exceeds %d bytes", ErrTruncated, addr, maxStringLen)
}

func decodeString(raw []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func encodeString(s string) ([]byte, error) {
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return append(out, 0), nil
}
