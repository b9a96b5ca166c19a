//go:build !linux && !darwin

package output

// No statfs here; the write itself reports a full disk.
func checkSpace(dir string, need uint64) error {
	return nil
}
