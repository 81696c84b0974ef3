package archive

// Mode selects the order candidate extensions are probed in.
type Mode int

const (
	// QuickScan probes static image formats first.
	QuickScan Mode = iota
	// BestQuality probes video and animated formats first.
	BestQuality
)

var (
	quickScanExts   = []string{".jpg", ".png", ".gif", ".gifv", ".mp4", ".webm", ".mpeg"}
	bestQualityExts = []string{".mp4", ".webm", ".gif", ".png", ".jpg", ".mpeg", ".gifv"}
)

// Extensions returns the ordered candidate extension list for mode.
// Both modes cover the same set; only the order differs. The returned
// slice is a copy and safe to reorder.
func Extensions(mode Mode) []string {
	src := quickScanExts
	if mode == BestQuality {
		src = bestQualityExts
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
