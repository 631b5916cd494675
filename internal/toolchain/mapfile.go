package toolchain

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const mapMarker = "Linker script and memory map"

// MapSizes maps module to top-level section to size in bytes.
type MapSizes map[string]map[string]int64

// preferredSections lead the report columns in this order.
var preferredSections = []string{".text", ".rodata", ".data", ".bss"}

var skippedSections = []string{
	".debug", ".comment", ".note", ".stab", ".ARM.attributes",
	".riscv.attributes", ".gnu.attributes", ".MIPS.abiflags", ".reginfo", ".pdr",
}

// ParseMapFile reads per-module section sizes from a GNU ld map file.
func ParseMapFile(path string) (MapSizes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sizes := make(MapSizes)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inMap := false
	pending := ""
	for sc.Scan() {
		line := sc.Text()
		if !inMap {
			inMap = strings.HasPrefix(line, mapMarker)
			continue
		}

		// A long input section name wraps; its address, size and object
		// follow on the next line.
		if pending != "" {
			name := pending
			pending = ""
			if fields := strings.Fields(line); len(fields) >= 3 && isHex(fields[0]) {
				sizes.add(name, fields[1], fields[2])
				continue
			}
		}

		if len(line) < 2 || line[0] != ' ' || line[1] == ' ' {
			continue
		}
		fields := strings.Fields(line)
		if !isInputSection(fields[0]) {
			continue
		}
		switch {
		case len(fields) == 1:
			pending = fields[0]
		case len(fields) >= 4 && isHex(fields[1]):
			sizes.add(fields[0], fields[2], fields[3])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return sizes, nil
}

func isInputSection(name string) bool {
	return name == "COMMON" || strings.HasPrefix(name, ".")
}

func isHex(s string) bool {
	return strings.HasPrefix(s, "0x")
}

func (m MapSizes) add(section, size, object string) {
	top, ok := topSection(section)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(size, "0x"), 16, 64)
	if err != nil || n == 0 {
		return
	}
	module := moduleName(object)
	if m[module] == nil {
		m[module] = make(map[string]int64)
	}
	m[module][top] += n
}

// topSection reduces an input section name to its output section.
func topSection(name string) (string, bool) {
	if name == "COMMON" {
		return ".bss", true
	}
	for _, p := range skippedSections {
		if strings.HasPrefix(name, p) {
			return "", false
		}
	}
	rest := strings.TrimPrefix(name, ".")
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "", false
	}
	return "." + rest, true
}

// moduleName is the base name of an object path, keeping any archive
// member suffix.
func moduleName(object string) string {
	head, member := object, ""
	if i := strings.IndexByte(object, '('); i >= 0 {
		head, member = object[:i], object[i:]
	}
	if i := strings.LastIndexAny(head, `/\`); i >= 0 {
		head = head[i+1:]
	}
	return head + member
}

func (m MapSizes) total(module string) int64 {
	var sum int64
	for _, n := range m[module] {
		sum += n
	}
	return sum
}

func (m MapSizes) sectionTotal(section string) int64 {
	var sum int64
	for _, secs := range m {
		sum += secs[section]
	}
	return sum
}

func (m MapSizes) sections() []string {
	seen := make(map[string]bool)
	for _, secs := range m {
		for s := range secs {
			seen[s] = true
		}
	}
	var out []string
	for _, s := range preferredSections {
		if seen[s] {
			out = append(out, s)
			delete(seen, s)
		}
	}
	rest := make([]string, 0, len(seen))
	for s := range seen {
		rest = append(rest, s)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func sizeCell(cur, old int64) string {
	return fmt.Sprintf("%d(%+d)", cur, cur-old)
}

// MapReport renders a per-module, per-section size table of a GNU ld map
// file with deltas against "<path>.old" when that snapshot exists.
func MapReport(path string) ([]string, error) {
	cur, err := ParseMapFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMapFileNotFound, path)
		}
		return nil, err
	}
	if len(cur) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMapData, path)
	}

	old, err := ParseMapFile(path + ".old")
	if err != nil {
		old = MapSizes{}
	}

	modules := make([]string, 0, len(cur))
	for m := range cur {
		modules = append(modules, m)
	}
	sort.Slice(modules, func(i, j int) bool {
		ti, tj := cur.total(modules[i]), cur.total(modules[j])
		if ti != tj {
			return ti > tj
		}
		return modules[i] < modules[j]
	})
	sections := cur.sections()

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	header := table.Row{"Module", "Size"}
	for _, s := range sections {
		header = append(header, s)
	}
	tw.AppendHeader(header)

	var grand, oldGrand int64
	for _, m := range modules {
		total, oldTotal := cur.total(m), old.total(m)
		row := table.Row{m, sizeCell(total, oldTotal)}
		for _, s := range sections {
			row = append(row, sizeCell(cur[m][s], old[m][s]))
		}
		tw.AppendRow(row)
		grand += total
	}
	for m := range old {
		oldGrand += old.total(m)
	}

	footer := table.Row{"Subtotals", sizeCell(grand, oldGrand)}
	for _, s := range sections {
		footer = append(footer, sizeCell(cur.sectionTotal(s), old.sectionTotal(s)))
	}
	tw.AppendFooter(footer)

	configs := make([]table.ColumnConfig, 0, len(header))
	for i := 2; i <= len(header); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	return strings.Split(tw.Render(), "\n"), nil
}
