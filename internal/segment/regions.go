package segment

import (
	"image"
)

// externalRegions returns the bounding boxes of the outermost foreground
// regions of m. Foreground is 8-connected and background 4-connected, so a
// region sitting inside a hole of another region never touches the outer
// background and is skipped, matching an external-only contour search.
func externalRegions(m *mask) []image.Rectangle {
	outside := outerBackground(m)
	visited := make([]bool, len(m.pix))

	var (
		regions []image.Rectangle
		stack   []int
	)

	for start, fg := range m.pix {
		if !fg || visited[start] {
			continue
		}

		visited[start] = true
		stack = append(stack[:0], start)

		minX, minY := m.w, m.h
		maxX, maxY := -1, -1
		external := false

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			x, y := i%m.w, i/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			if x == 0 || y == 0 || x == m.w-1 || y == m.h-1 {
				external = true
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
						continue
					}
					j := ny*m.w + nx
					if m.pix[j] {
						if !visited[j] {
							visited[j] = true
							stack = append(stack, j)
						}
						continue
					}
					if (dx == 0 || dy == 0) && outside[j] {
						external = true
					}
				}
			}
		}

		if external {
			regions = append(regions, image.Rect(minX, minY, maxX+1, maxY+1))
		}
	}
	return regions
}

// outerBackground flood-fills background pixels reachable from the image border.
func outerBackground(m *mask) []bool {
	outside := make([]bool, len(m.pix))
	var stack []int

	push := func(x, y int) {
		i := y*m.w + x
		if !m.pix[i] && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}

	for x := 0; x < m.w; x++ {
		push(x, 0)
		push(x, m.h-1)
	}
	for y := 0; y < m.h; y++ {
		push(0, y)
		push(m.w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, y := i%m.w, i/m.w
		if x > 0 {
			push(x-1, y)
		}
		if x < m.w-1 {
			push(x+1, y)
		}
		if y > 0 {
			push(x, y-1)
		}
		if y < m.h-1 {
			push(x, y+1)
		}
	}
	return outside
}
