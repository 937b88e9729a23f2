package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"rekit/process"
	"rekit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartOffset is the address of the first byte of data
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// Plain disables ANSI colors
	Plain bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode

	// Highlight marks every occurrence of the masked pattern
	Highlight process.AOB

	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// Regions, when set, enables a preview of the two qwords of each line
	// that point into one of them
	Regions []memory_map.Region
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:             16,
		ShowASCII:                true,
		OffsetWidth:              12,
		OffsetColor:              coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.Red,
		ZeroColor:                coloransi.BrightBlack,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.Black,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	marked := highlighted(data, options.Highlight)

	lineCount := 0
	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		if options.MaxLines > 0 && lineCount >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			break
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], marked[offset:end], options.StartOffset+uint64(offset), options)
		lineCount++
	}
}

// highlighted marks every byte covered by a match of aob in data.
func highlighted(data []byte, aob process.AOB) []bool {
	marked := make([]bool, len(data))
	if !aob.IsValid() {
		return marked
	}
	for i := 0; i+aob.Len() <= len(data); i++ {
		if aob.MatchAt(data, i) {
			for j := i; j < i+aob.Len(); j++ {
				marked[j] = true
			}
		}
	}
	return marked
}

func paint(options HexDumpOptions, fg coloransi.ColorCode, s string) string {
	if options.Plain {
		return s
	}
	return coloransi.Foreground(fg, s)
}

func paintHighlight(options HexDumpOptions, s string) string {
	if options.Plain {
		return s
	}
	return coloransi.Color(options.HighlightColor, options.HighlightBackgroundColor, s)
}

// formatLine formats a single line of the hex dump
//
//	00007ff61000  48 8b 05 00 00 00 00 90 | 00 11 22 33 44 55 66 77 | H....... ..."3DUfw | 0x7ff610002000
func formatLine(writer io.Writer, data []byte, marked []bool, offset uint64, options HexDumpOptions) {
	offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", offset)
	fmt.Fprint(writer, paint(options, options.OffsetColor, offsetStr), "  ")

	half := options.BytesPerLine / 2
	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 {
			if options.BytesPerLine >= 8 && i == half {
				fmt.Fprint(writer, " | ")
			} else {
				fmt.Fprint(writer, " ")
			}
		}
		if i >= len(data) {
			fmt.Fprint(writer, "  ")
			continue
		}

		hexValue := fmt.Sprintf("%02x", data[i])
		switch {
		case marked[i]:
			fmt.Fprint(writer, paintHighlight(options, hexValue))
		case data[i] == 0:
			fmt.Fprint(writer, paint(options, options.ZeroColor, hexValue))
		default:
			fmt.Fprint(writer, paint(options, options.HexColor, hexValue))
		}
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")
		for i, b := range data {
			if options.BytesPerLine >= 8 && i == half {
				fmt.Fprint(writer, " ")
			}
			formatASCII(writer, b, marked[i], options)
		}
		if pad := options.BytesPerLine - len(data); pad > 0 {
			if options.BytesPerLine >= 8 && len(data) <= half {
				pad++
			}
			fmt.Fprint(writer, strings.Repeat(" ", pad))
		}
	}

	if len(options.Regions) > 0 && len(data) >= 8 {
		var ptrs []string
		for i := 0; i+8 <= len(data) && i < 16; i += 8 {
			ptr := binary.LittleEndian.Uint64(data[i : i+8])
			if memory_map.IsValidAddress(ptr, options.Regions) {
				ptrs = append(ptrs, paint(options, coloransi.Yellow, fmt.Sprintf("0x%x", ptr)))
			}
		}
		if len(ptrs) > 0 {
			fmt.Fprint(writer, " | ", strings.Join(ptrs, " "))
		}
	}

	fmt.Fprintln(writer)
}

// formatASCII formats one byte of the ASCII column
func formatASCII(writer io.Writer, b byte, marked bool, options HexDumpOptions) {
	c := rune(b)
	printable := b < 0x80 && unicode.IsPrint(c)

	switch {
	case marked && printable:
		fmt.Fprint(writer, paintHighlight(options, string(c)))
	case marked:
		fmt.Fprint(writer, paintHighlight(options, "."))
	case b == 0:
		fmt.Fprint(writer, paint(options, options.ZeroColor, "."))
	case !printable:
		fmt.Fprint(writer, paint(options, options.NonPrintableColor, "."))
	default:
		fmt.Fprint(writer, paint(options, options.ASCIIColor, string(c)))
	}
}

// HexdumpBasic dumps data read from addr, highlighting aob and previewing
// pointers into regions.
func HexdumpBasic(data []byte, addr uint64, aob process.AOB, regions []memory_map.Region) string {
	options := DefaultOptions()
	options.StartOffset = addr
	options.Highlight = aob
	options.Regions = regions
	return Dump(data, options)
}
