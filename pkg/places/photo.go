package places

import (
	"net/url"
	"strconv"
)

// GetPhotoURL builds a photo display URL without fetching it.
func (c *Client) GetPhotoURL(photoReference string, maxWidth, maxHeight int) string {
	return BuildPhotoURL(c.config.BaseURL, c.config.APIKey, photoReference, maxWidth, maxHeight)
}

func BuildPhotoURL(baseURL, apiKey, photoReference string, maxWidth, maxHeight int) string {
	q := url.Values{}
	if maxWidth > 0 {
		q.Set("maxwidth", strconv.Itoa(maxWidth))
	}
	if maxHeight > 0 {
		q.Set("maxheight", strconv.Itoa(maxHeight))
	}
	q.Set("photo_reference", photoReference)
	q.Set("key", apiKey)
	return baseURL + "/photo?" + q.Encode()
}
