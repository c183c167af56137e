package models

// Asset is a media object held by the external media store: a public URL
// and the key needed to delete it. An asset becomes durable only once an
// account references it.
type Asset struct {
	URL string
	Key string
}

func (a Asset) IsZero() bool {
	return a.URL == "" && a.Key == ""
}
