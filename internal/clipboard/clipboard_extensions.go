package clipboard

// ChangeTracker is an optional interface for clipboard implementations that
// can tell cheaply whether the content changed since the last check. The
// monitor skips the read when it reports no change.
type ChangeTracker interface {
	HasChanged() bool
}

// IsChangeTracker checks if the given clipboard implements ChangeTracker
func IsChangeTracker(c Clipboard) (ChangeTracker, bool) {
	tracker, ok := c.(ChangeTracker)
	return tracker, ok
}
