package images

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

// FileName builds "<8 hex>_<canonical>_<index><ext>".
func FileName(canonical string, index int, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s_%s_%d%s", id, unsafeName.Replace(canonical), index, ext)
}
