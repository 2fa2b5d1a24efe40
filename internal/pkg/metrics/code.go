package metrics

import "strconv"

func statusCode(code int) string {
	if code == 0 {
		code = 200
	}
	return strconv.Itoa(code)
}
