package socket

import (
	"errors"
	"io"
	"strconv"
)

func itoa(port int) string {
	return strconv.Itoa(port)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
