package storage

import "strings"

// Folder prefixes by mime category. Unknown types land in the default
// bucket prefix.
var folderByCategory = map[string]string{
	"image": "drive/images",
	"video": "drive/videos",
	"audio": "drive/audio",
}

const defaultFolder = "drive/files"

// Category extracts the top-level mime category ("image/png" -> "image").
func Category(mimeType string) string {
	if i := strings.Index(mimeType, "/"); i > 0 {
		return mimeType[:i]
	}
	return mimeType
}

// FolderFor maps a mime type onto the storage path prefix used for it.
func FolderFor(mimeType string) string {
	if folder, ok := folderByCategory[Category(mimeType)]; ok {
		return folder
	}
	return defaultFolder
}
