package service

import (
	cvrpc "curationvault/pkg/api/cvrpc/v1"
	"curationvault/pkg/meta"
)

// DTO 转换 (Domain Object -> Wire)

func toFile(f *meta.FileObject, works []meta.Work, latest *meta.Version, versions int64) cvrpc.File {
	out := cvrpc.File{
		ID:                   f.ID.String(),
		Title:                f.Titles(),
		Label:                f.Label,
		Depositor:            f.Depositor,
		DateUploaded:         f.DateUploaded,
		DateModified:         f.DateModified,
		Visibility:           f.Visibility.String(),
		UploadSetID:          f.UploadSetID.String(),
		MimeType:             f.MimeType,
		FileSize:             f.FileSize,
		Checksum:             f.Checksum,
		CharacterizedVersion: f.CharacterizedVersion,
		CharacterizedAt:      f.CharacterizedAt,
		VersionCount:         versions,
	}
	for _, w := range works {
		out.WorkIDs = append(out.WorkIDs, w.ID.String())
	}
	if latest != nil {
		out.LatestVersion = latest.Label
	}
	return out
}

func toVersion(v *meta.Version) cvrpc.Version {
	return cvrpc.Version{
		FileID:       v.FileID.String(),
		Label:        v.Label,
		Sequence:     v.Sequence,
		Committer:    v.Committer,
		ContentHash:  v.ContentHash.String(),
		OriginalName: v.OriginalName,
		MimeType:     v.MimeType,
		Size:         v.Size,
		CreatedAt:    v.CreatedAt,
	}
}

func toVersions(vs []meta.Version) []cvrpc.Version {
	out := make([]cvrpc.Version, 0, len(vs))
	for i := range vs {
		out = append(out, toVersion(&vs[i]))
	}
	return out
}

func toWork(w *meta.Work, files []meta.FileObject) cvrpc.Work {
	out := cvrpc.Work{
		ID:               w.ID.String(),
		Title:            w.Titles(),
		Depositor:        w.Depositor,
		Visibility:       w.Visibility.String(),
		RepresentativeID: w.RepresentativeID.String(),
	}
	for _, f := range files {
		out.FileIDs = append(out.FileIDs, f.ID.String())
	}
	return out
}
