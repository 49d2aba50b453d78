// Package attachment decides, per CMS lifecycle event, whether an attachment
// lives on the remote image host or in local storage.
package attachment

// File is the descriptor the CMS hands over for a new or replacement upload.
// Content comes from TmpName (a staged temporary file) or, failing that, from
// Bytes or Bits.
type File struct {
	Name    string `json:"name"`
	TmpName string `json:"tmp_name,omitempty"`
	Bytes   []byte `json:"bytes,omitempty"`
	Bits    []byte `json:"bits,omitempty"`
	Size    int64  `json:"size,omitempty"` // 0 when unknown
}

// Content returns the in-memory payload, if any.
func (f File) Content() []byte {
	if f.Bytes != nil {
		return f.Bytes
	}
	return f.Bits
}

// HasContent reports whether the descriptor carries something to store.
func (f File) HasContent() bool {
	return f.TmpName != "" || f.Bytes != nil || f.Bits != nil
}

// Attachment is the metadata the CMS persists for an uploaded file.
// Path is an absolute URL for remote images and a path relative to the
// upload root otherwise.
type Attachment struct {
	ImgID string `json:"img_id,omitempty"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Type  string `json:"type"`
	Mime  string `json:"mime"`
}

// Content is the CMS record of an existing attachment.
type Content struct {
	Title      string     `json:"title"`
	Attachment Attachment `json:"attachment"`
}

// Location says where an attachment's bytes live. It is either Remote or Local.
type Location interface {
	location()
}

// Remote is an image held by the image host.
type Remote struct {
	Key string
	URL string
}

// Local is a file held by the local fallback storage.
type Local struct {
	Path string
}

func (Remote) location() {}
func (Local) location()  {}

// Location classifies the attachment given its file extension. Only an image
// with a remote key is Remote; everything else, including images without a
// key, is Local.
func (a Attachment) Location(ext string) Location {
	if a.ImgID != "" && IsImage(ext) {
		return Remote{Key: a.ImgID, URL: a.Path}
	}
	return Local{Path: a.Path}
}
