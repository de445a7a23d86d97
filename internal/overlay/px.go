// internal/overlay/px.go
package overlay

import "strconv"

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}
