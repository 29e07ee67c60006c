// Package journal records the content hashes of generated artifacts and the
// history of sync runs in a SQLite database.
//
// A Writer wraps another assets.ArtifactWriter and skips writes whose
// content is already on disk:
//
//	j, err := journal.Open(".cog/journal.db")
//	if err != nil {
//		return err
//	}
//	defer j.Close()
//
//	w := journal.NewWriter(j, assets.DirectWriter{}, nil)
//	written, err := w.WriteArtifact(ctx, "android-manifest", path, data)
package journal
