package camera

import (
	"encoding/json"
	"log"
	"os"
)

// LUTSize is the number of source byte values a LUT maps.
const LUTSize = 256

// LUTChannels is the number of BGR channels a LUT maps independently.
const LUTChannels = 3

// LUT is a 256x3 per-channel byte mapping: LUT[v][c] is what channel c maps
// source byte v to.
type LUT [LUTSize][LUTChannels]byte

// LoadLUT reads a LUT file and reshapes it to 256x3. It accepts either a
// flat array of 768 numbers or a nested array of 256 triples. A missing
// file, unreadable file, or wrong-shape array is not an error the caller
// must handle: it returns (nil, false) so the processor can disable LUT
// application for that camera without failing (spec.md §3, §8 scenario 6).
func LoadLUT(path string) (*LUT, bool) {
	if path == "" {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("camstream: camera: LUT file %s unreadable: %v (LUT disabled)", path, err)
		return nil, false
	}

	if lut, ok := parseFlat(data); ok {
		return lut, true
	}
	if lut, ok := parseNested(data); ok {
		return lut, true
	}

	log.Printf("camstream: camera: LUT file %s has the wrong shape (LUT disabled)", path)
	return nil, false
}

func parseFlat(data []byte) (*LUT, bool) {
	var flat []int
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, false
	}
	if len(flat) != LUTSize*LUTChannels {
		return nil, false
	}

	var lut LUT
	for v := 0; v < LUTSize; v++ {
		for c := 0; c < LUTChannels; c++ {
			lut[v][c] = clampByte(flat[v*LUTChannels+c])
		}
	}
	return &lut, true
}

func parseNested(data []byte) (*LUT, bool) {
	var rows [][]int
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false
	}
	if len(rows) != LUTSize {
		return nil, false
	}

	var lut LUT
	for v, row := range rows {
		if len(row) != LUTChannels {
			return nil, false
		}
		for c, val := range row {
			lut[v][c] = clampByte(val)
		}
	}
	return &lut, true
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
