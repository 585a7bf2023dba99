// compound.go - OLE compound file builder for legacy Office fixtures
package testutil

import (
	"encoding/binary"
	"strings"
	"unicode/utf16"
)

const (
	cfbSectorSize   = 512
	cfbDirEntrySize = 128
	cfbMiniCutoff   = 4096

	cfbFreeSect   = 0xFFFFFFFF
	cfbEndOfChain = 0xFFFFFFFE
	cfbFATSect    = 0xFFFFFFFD
	cfbNoStream   = 0xFFFFFFFF

	cfbTypeStorage = 0x01
	cfbTypeStream  = 0x02
	cfbTypeRoot    = 0x05
)

// CompoundStream is one stream of a compound file. Path separates storages
// with "/", e.g. "ObjectPool/_123/WordDocument".
type CompoundStream struct {
	Path string
	Data []byte
}

type cfbEntry struct {
	name     string
	kind     byte
	data     []byte
	children []int
	start    uint32
	left     uint32
	right    uint32
	child    uint32
}

// BuildCompoundFile returns a version 3 compound file (512-byte sectors)
// holding the given streams. Streams shorter than 4096 bytes are zero-padded
// so every stream lives in regular sectors and no mini stream is written.
func BuildCompoundFile(streams ...CompoundStream) []byte {
	entries := []*cfbEntry{{name: "Root Entry", kind: cfbTypeRoot}}
	storages := map[string]int{"": 0}

	for _, s := range streams {
		parts := strings.Split(s.Path, "/")
		parent := 0
		for i := range parts[:len(parts)-1] {
			key := strings.Join(parts[:i+1], "/")
			idx, ok := storages[key]
			if !ok {
				idx = len(entries)
				entries = append(entries, &cfbEntry{name: parts[i], kind: cfbTypeStorage})
				entries[parent].children = append(entries[parent].children, idx)
				storages[key] = idx
			}
			parent = idx
		}

		data := s.Data
		if len(data) < cfbMiniCutoff {
			data = append(append([]byte(nil), data...), make([]byte, cfbMiniCutoff-len(data))...)
		}
		idx := len(entries)
		entries = append(entries, &cfbEntry{name: parts[len(parts)-1], kind: cfbTypeStream, data: data})
		entries[parent].children = append(entries[parent].children, idx)
	}

	// Siblings are chained through right pointers; readers only walk the links.
	for _, e := range entries {
		e.left, e.right, e.child = cfbNoStream, cfbNoStream, cfbNoStream
	}
	for _, e := range entries {
		if len(e.children) == 0 {
			continue
		}
		e.child = uint32(e.children[0])
		for i := 0; i < len(e.children)-1; i++ {
			entries[e.children[i]].right = uint32(e.children[i+1])
		}
	}

	// Sector layout: stream data, then the directory, then the FAT.
	var fat []uint32
	chain := func(n int) uint32 {
		start := uint32(len(fat))
		for i := 0; i < n; i++ {
			next := uint32(len(fat) + 1)
			if i == n-1 {
				next = cfbEndOfChain
			}
			fat = append(fat, next)
		}
		return start
	}
	sectorsFor := func(n int) int { return (n + cfbSectorSize - 1) / cfbSectorSize }

	for _, e := range entries {
		e.start = cfbEndOfChain
		if e.kind == cfbTypeStream {
			e.start = chain(sectorsFor(len(e.data)))
		}
	}
	dirStart := chain(sectorsFor(len(entries) * cfbDirEntrySize))

	perFAT := cfbSectorSize / 4
	fatSectors := 1
	for (len(fat)+fatSectors+perFAT-1)/perFAT > fatSectors {
		fatSectors++
	}
	fatStart := uint32(len(fat))
	for i := 0; i < fatSectors; i++ {
		fat = append(fat, cfbFATSect)
	}
	for len(fat) < fatSectors*perFAT {
		fat = append(fat, cfbFreeSect)
	}

	header := make([]byte, cfbSectorSize)
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(header[24:], 0x003E)
	binary.LittleEndian.PutUint16(header[26:], 3)
	binary.LittleEndian.PutUint16(header[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(header[30:], 9)
	binary.LittleEndian.PutUint16(header[32:], 6)
	binary.LittleEndian.PutUint32(header[44:], uint32(fatSectors))
	binary.LittleEndian.PutUint32(header[48:], dirStart)
	binary.LittleEndian.PutUint32(header[56:], cfbMiniCutoff)
	binary.LittleEndian.PutUint32(header[60:], cfbEndOfChain)
	binary.LittleEndian.PutUint32(header[68:], cfbEndOfChain)
	for i := 0; i < 109; i++ {
		loc := uint32(cfbFreeSect)
		if i < fatSectors {
			loc = fatStart + uint32(i)
		}
		binary.LittleEndian.PutUint32(header[76+i*4:], loc)
	}

	out := append([]byte(nil), header...)
	for _, e := range entries {
		if e.kind == cfbTypeStream {
			out = append(out, padSector(e.data)...)
		}
	}

	var dir []byte
	for _, e := range entries {
		dir = append(dir, cfbDirEntry(e)...)
	}
	for len(dir)%cfbSectorSize != 0 {
		dir = append(dir, cfbUnusedDirEntry()...)
	}
	out = append(out, dir...)

	for _, v := range fat {
		out = binary.LittleEndian.AppendUint32(out, v)
	}
	return out
}

func cfbDirEntry(e *cfbEntry) []byte {
	b := make([]byte, cfbDirEntrySize)
	units := utf16.Encode([]rune(e.name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	binary.LittleEndian.PutUint16(b[64:], uint16((len(units)+1)*2))
	b[66] = e.kind
	b[67] = 1 // black
	binary.LittleEndian.PutUint32(b[68:], e.left)
	binary.LittleEndian.PutUint32(b[72:], e.right)
	binary.LittleEndian.PutUint32(b[76:], e.child)
	binary.LittleEndian.PutUint32(b[116:], e.start)
	binary.LittleEndian.PutUint32(b[120:], uint32(len(e.data)))
	return b
}

func cfbUnusedDirEntry() []byte {
	b := make([]byte, cfbDirEntrySize)
	binary.LittleEndian.PutUint32(b[68:], cfbNoStream)
	binary.LittleEndian.PutUint32(b[72:], cfbNoStream)
	binary.LittleEndian.PutUint32(b[76:], cfbNoStream)
	return b
}

func padSector(data []byte) []byte {
	if rem := len(data) % cfbSectorSize; rem != 0 {
		return append(append([]byte(nil), data...), make([]byte, cfbSectorSize-rem)...)
	}
	return data
}
