package utils

import "net/url"

// MaskURL hides userinfo and query values in a URL so endpoint addresses can
// be logged without leaking embedded credentials. Malformed input is returned
// unchanged.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	q := u.Query()
	for key := range q {
		q.Set(key, "***")
	}
	u.RawQuery = q.Encode()
	return u.String()
}
