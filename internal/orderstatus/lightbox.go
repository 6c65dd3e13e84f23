package orderstatus

// Lightbox is the full-screen photo viewer. It is either closed or open at
// an index in [0, N). Navigation wraps around in both directions.
type Lightbox struct {
	n     int
	open  bool
	index int
}

// NewLightbox returns a closed lightbox over n photos.
func NewLightbox(n int) *Lightbox {
	return &Lightbox{n: max(n, 0)}
}

// OpenAt opens the viewer at photo i. It reports false and stays unchanged
// when i is out of range, which is always the case for an empty gallery.
func (l *Lightbox) OpenAt(i int) bool {
	if i < 0 || i >= l.n {
		return false
	}
	l.open = true
	l.index = i
	return true
}

func (l *Lightbox) Close() {
	l.open = false
}

// Next advances to (i+1) mod N. It is a no-op while closed.
func (l *Lightbox) Next() {
	if !l.open {
		return
	}
	l.index = (l.index + 1) % l.n
}

// Prev moves to (i-1+N) mod N. It is a no-op while closed.
func (l *Lightbox) Prev() {
	if !l.open {
		return
	}
	l.index = (l.index - 1 + l.n) % l.n
}

// Backdrop handles a click outside the image.
func (l *Lightbox) Backdrop() { l.Close() }

// Thumbnail handles a click on gallery thumbnail i.
func (l *Lightbox) Thumbnail(i int) bool { return l.OpenAt(i) }

// ImageClick handles a click on the displayed image. The viewer stays open.
func (l *Lightbox) ImageClick() {}

func (l *Lightbox) IsOpen() bool { return l.open }

// Index is the displayed photo, or -1 while closed.
func (l *Lightbox) Index() int {
	if !l.open {
		return -1
	}
	return l.index
}

func (l *Lightbox) Len() int { return l.n }

// Neighbors returns the indices Prev and Next would move to from i.
func (l *Lightbox) Neighbors(i int) (prev, next int) {
	if l.n == 0 {
		return -1, -1
	}
	return (i - 1 + l.n) % l.n, (i + 1) % l.n
}
