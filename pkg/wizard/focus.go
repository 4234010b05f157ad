package wizard

// NextFocus computes where Tab (or Shift+Tab) lands inside a modal with count
// focusable elements when current is focused. Focus wraps from the last
// element to the first and back; wrapped reports whether the host must move
// focus itself instead of letting the default tab order run.
func NextFocus(count, current int, shift bool) (next int, wrapped bool) {
	if count <= 0 {
		return 0, false
	}
	if current < 0 || current >= count {
		if shift {
			return count - 1, true
		}
		return 0, true
	}
	if shift {
		if current == 0 {
			return count - 1, true
		}
		return current - 1, false
	}
	if current == count-1 {
		return 0, true
	}
	return current + 1, false
}
