package app

import (
	"strings"

	"curationvault/pkg/actor"
)

func actorUpload(name, content string) actor.UploadedFile {
	return actor.UploadedFile{Reader: strings.NewReader(content), Filename: name}
}
