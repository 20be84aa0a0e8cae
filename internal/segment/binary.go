package segment

import (
	"image"
)

// mask is a row-major binary image; true marks foreground.
type mask struct {
	w, h int
	pix  []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, pix: make([]bool, w*h)}
}

func (m *mask) at(x, y int) bool {
	return m.pix[y*m.w+x]
}

// binarize marks every pixel whose luma is at or below threshold, so that
// off-white scan backgrounds drop out while ink and figure content remain.
func binarize(img *image.RGBA, threshold uint8) *mask {
	b := img.Bounds()
	m := newMask(b.Dx(), b.Dy())

	for y := 0; y < m.h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+m.w*4]
		for x := 0; x < m.w; x++ {
			r, g, bl := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			luma := (299*r + 587*g + 114*bl + 500) / 1000
			m.pix[y*m.w+x] = luma <= int(threshold)
		}
	}
	return m
}

// closing performs a morphological closing with a size x size square element.
// Pixels outside the image never influence the result.
func (m *mask) closing(size int) *mask {
	if size <= 1 {
		return m
	}
	dilated := m.filter(size, true, false).filter(size, false, false)
	return dilated.filter(size, true, true).filter(size, false, true)
}

// filter runs a one-dimensional max (erode=false) or min (erode=true) over a
// window of the given size along rows or columns, using running counts.
func (m *mask) filter(size int, horizontal, erode bool) *mask {
	out := newMask(m.w, m.h)

	lines, length := m.h, m.w
	if !horizontal {
		lines, length = m.w, m.h
	}

	before := size / 2
	after := size - 1 - before

	index := func(line, pos int) int {
		if horizontal {
			return line*m.w + pos
		}
		return pos*m.w + line
	}

	prefix := make([]int, length+1)
	for line := 0; line < lines; line++ {
		for pos := 0; pos < length; pos++ {
			prefix[pos+1] = prefix[pos]
			if m.pix[index(line, pos)] {
				prefix[pos+1]++
			}
		}

		for pos := 0; pos < length; pos++ {
			lo := max(pos-before, 0)
			hi := min(pos+after, length-1)
			count := prefix[hi+1] - prefix[lo]

			if erode {
				out.pix[index(line, pos)] = count == hi-lo+1
			} else {
				out.pix[index(line, pos)] = count > 0
			}
		}
	}
	return out
}
