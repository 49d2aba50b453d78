package lsky

// Response is the envelope every Lsky Pro v2 endpoint answers with.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *Image `json:"data,omitempty"`
}

// Image is the data block of an upload response.
type Image struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Pathname   string  `json:"pathname"`
	OriginName string  `json:"origin_name"`
	Size       float64 `json:"size"`
	Mimetype   string  `json:"mimetype"`
	Extension  string  `json:"extension"`
	MD5        string  `json:"md5"`
	SHA1       string  `json:"sha1"`
	Links      Links   `json:"links"`
}

// Links are the public URLs the host generated for an image.
type Links struct {
	URL          string `json:"url"`
	HTML         string `json:"html"`
	BBCode       string `json:"bbcode"`
	Markdown     string `json:"markdown"`
	ThumbnailURL string `json:"thumbnail_url"`
}
