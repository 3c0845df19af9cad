package helpers

// Collects the pieces of a bundle and copies them into one buffer at the end.
// The final size is known before anything is copied, so the buffer is only
// allocated once.
type Joiner struct {
	pieces   []string
	length   int
	lastByte byte
}

func (j *Joiner) AddString(data string) {
	if len(data) == 0 {
		return
	}
	j.lastByte = data[len(data)-1]
	j.pieces = append(j.pieces, data)
	j.length += len(data)
}

func (j *Joiner) AddBytes(data []byte) {
	j.AddString(string(data))
}

func (j *Joiner) Length() int {
	return j.length
}

func (j *Joiner) EnsureNewlineAtEnd() {
	if j.length > 0 && j.lastByte != '\n' {
		j.AddString("\n")
	}
}

func (j *Joiner) Done() []byte {
	buffer := make([]byte, 0, j.length)
	for _, piece := range j.pieces {
		buffer = append(buffer, piece...)
	}
	return buffer
}
