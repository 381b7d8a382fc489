package cli

import (
	"os"
	"strconv"
)

func jsonID(id int64) string { return strconv.FormatInt(id, 10) }

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}
