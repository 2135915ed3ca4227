package jikan

// animeResponse mirrors the subset of the /v4/anime/{id} payload the
// resolver needs: {data: {images: {webp: {...}, jpg: {...}}}}
type animeResponse struct {
	Data struct {
		Images imageSet `json:"images"`
	} `json:"data"`
}

type imageSet struct {
	WebP imageVariants `json:"webp"`
	JPG  imageVariants `json:"jpg"`
}

type imageVariants struct {
	ImageURL      string `json:"image_url"`
	LargeImageURL string `json:"large_image_url"`
}

// bestURL picks one variant in strict preference order:
// webp-large, then jpg-large, then jpg-regular.
func (s imageSet) bestURL() string {
	if s.WebP.LargeImageURL != "" {
		return s.WebP.LargeImageURL
	}
	if s.JPG.LargeImageURL != "" {
		return s.JPG.LargeImageURL
	}
	return s.JPG.ImageURL
}
