//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package byteview

// openMmap falls back to the portable provider where x/sys/unix has no Mmap.
func openMmap(path string, _ int) (View, error) {
	return OpenReaderAt(path)
}
