package pagination

import (
	"fmt"
	"strings"
)

// Direction is the direction of selection or pagination. Top and Bottom
// reveal elements while scrolling a list; Leading and Trailing page
// sideways through a selected element.
type Direction int

const (
	Top Direction = iota
	Bottom
	Leading
	Trailing
)

var directionNames = [...]string{"top", "bottom", "leading", "trailing"}

func (d Direction) String() string {
	if d < Top || d > Trailing {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection parses a direction name, ignoring case.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if strings.EqualFold(s, name) {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q (want top, bottom, leading or trailing)", s)
}

// IsPrevious reports whether d moves toward earlier elements.
func (d Direction) IsPrevious() bool { return d == Top || d == Leading }

// IsNext reports whether d moves toward later elements.
func (d Direction) IsNext() bool { return !d.IsPrevious() }

func (d Direction) IsVerticalScrolling() bool { return d == Top || d == Bottom }

func (d Direction) IsHorizontalPaging() bool { return d == Leading || d == Trailing }
