package badge

import (
	"fmt"
	"math"
	"strings"
)

// Braille blocks from empty to full, four sub-blocks per row
var blocks = []rune{'⠀', '⣀', '⣤', '⣶', '⣿'}

const subBlocksPerRow = 4.0

// Sparkline renders values as a bar chart of the given height in rows, with
// the scale printed above and below. Fewer than two values yield "".
func Sparkline(values []float64, height int) string {
	if len(values) < 2 || height < 1 {
		return ""
	}

	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}

	// pad the range so flat series still show a bar
	buffer := 10.0
	minVal = math.Max(0, minVal-buffer)
	maxVal += buffer
	rangeVal := maxVal - minVal

	rows := make([][]rune, height)
	for i := range rows {
		rows[i] = []rune(strings.Repeat(string(blocks[0]), len(values)))
	}

	for x, val := range values {
		totalSubBlocks := (val - minVal) / rangeVal * float64(height) * subBlocksPerRow

		for y := 0; y < height; y++ {
			lineIdx := height - 1 - y
			lineStart := float64(y) * subBlocksPerRow
			lineEnd := float64(y+1) * subBlocksPerRow

			if totalSubBlocks >= lineEnd {
				rows[lineIdx][x] = blocks[len(blocks)-1]
			} else if totalSubBlocks > lineStart {
				remainder := int(math.Round(totalSubBlocks - lineStart))
				remainder = max(0, min(remainder, len(blocks)-1))
				rows[lineIdx][x] = blocks[remainder]
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Max: %.0f\n", maxVal)
	for _, row := range rows {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Min: %.0f", minVal)

	return b.String()
}
