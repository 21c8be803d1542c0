package gaze

import (
	"errors"
	"fmt"
)

// Channel labels one gaze trace in a Series.
type Channel string

const (
	ChannelLeft    Channel = "L"
	ChannelRight   Channel = "R"
	ChannelAverage Channel = "average"
)

// XColumn returns the canonical column name for the channel's horizontal position.
func (c Channel) XColumn() string { return string(c) + "_X" }

// YColumn returns the canonical column name for the channel's vertical position.
func (c Channel) YColumn() string { return string(c) + "_Y" }

// ColorName returns the fixed trace color for the channel.
func (c Channel) ColorName() string {
	switch c {
	case ChannelLeft:
		return "green"
	case ChannelRight:
		return "red"
	default:
		return "blue"
	}
}

// Layout is the resolved set of channels present for a recording.
type Layout int

const (
	LayoutLeftOnly Layout = iota + 1
	LayoutRightOnly
	LayoutBoth
	LayoutAverageOnly
)

// ErrNoChannels indicates a recording has neither per-eye nor average gaze data.
var ErrNoChannels = errors.New("no gaze channels present")

// ResolveLayout applies the channel priority rule: L if present, R if present,
// and average only when neither eye is present.
func ResolveLayout(hasLeft, hasRight, hasAverage bool) (Layout, error) {
	switch {
	case hasLeft && hasRight:
		return LayoutBoth, nil
	case hasLeft:
		return LayoutLeftOnly, nil
	case hasRight:
		return LayoutRightOnly, nil
	case hasAverage:
		return LayoutAverageOnly, nil
	default:
		return 0, ErrNoChannels
	}
}

// Channels returns the layout's channels in trace order.
func (l Layout) Channels() []Channel {
	switch l {
	case LayoutLeftOnly:
		return []Channel{ChannelLeft}
	case LayoutRightOnly:
		return []Channel{ChannelRight}
	case LayoutBoth:
		return []Channel{ChannelLeft, ChannelRight}
	case LayoutAverageOnly:
		return []Channel{ChannelAverage}
	default:
		return nil
	}
}

func (l Layout) String() string {
	switch l {
	case LayoutLeftOnly:
		return "left"
	case LayoutRightOnly:
		return "right"
	case LayoutBoth:
		return "binocular"
	case LayoutAverageOnly:
		return "average"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}
