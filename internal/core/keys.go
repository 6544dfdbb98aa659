package core

import (
	"path"
	"strings"
)

// Object-key layout shared by the upload service, the watcher trigger and
// the coordinator:
//
//	uploads/{ackId}/{fileName}  -> original document
//	results/{base}.xlsx         -> result workbook

// UploadLocation builds the object key for a fresh upload.
func UploadLocation(ackID, fileName string) string {
	return "uploads/" + ackID + "/" + fileName
}

// ResultLocation derives the result-workbook key from the upload's file
// name. Must stay in sync with what the coordinator writes.
func ResultLocation(fileName string) string {
	base := fileName
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return "results/" + base + ".xlsx"
}

// ParseAckID extracts the ackId from an upload object key, reporting
// whether the key matches the uploads/{ackId}/{fileName} layout.
func ParseAckID(objectKey string) (string, bool) {
	parts := strings.Split(objectKey, "/")
	if len(parts) >= 3 && parts[0] == "uploads" && parts[1] != "" {
		return parts[1], true
	}
	return "", false
}
