package dispatch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"sceneforge/internal/engine"
	"sceneforge/internal/logging"
	"sceneforge/internal/manifest"
	"sceneforge/internal/registry"
)

const (
	sequenceAssetPrefix = "LS_"
	sequenceAssetExt    = ".uasset"
	assetRootPrefix     = "/Game/"
)

// SequenceScanner indexes level-sequence assets under a content root into the
// registry. It runs in-process; no engine launch is needed to walk the
// content tree.
type SequenceScanner struct {
	store      *registry.Store
	contentDir string
	logger     *slog.Logger
}

// NewSequenceScanner builds a scanner rooted at the project's content
// directory on disk.
func NewSequenceScanner(store *registry.Store, contentDir string, logger *slog.Logger) *SequenceScanner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &SequenceScanner{
		store:      store,
		contentDir: contentDir,
		logger:     logging.WithComponent(logger, "seqscan"),
	}
}

// Execute walks the payload's content root and upserts every sequence asset
// it finds. Scene and map identity come from the payload when given, else
// from the directory layout (scene/map/LS_name.uasset).
func (s *SequenceScanner) Execute(ctx context.Context, m *manifest.Manifest, outputDir string) (*engine.Result, error) {
	payload, ok := m.Payload.(*manifest.ScanSequencesPayload)
	if !ok {
		return nil, Wrap(ErrValidation, m.JobID, "scan sequences",
			fmt.Sprintf("payload is %T, not scan_sequences", m.Payload), nil)
	}

	root, err := s.resolveRoot(payload.ContentRoot)
	if err != nil {
		return nil, Wrap(ErrValidation, m.JobID, "scan sequences", "", err)
	}

	indexed := 0
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !isSequenceAsset(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		scene, mapName := s.identityFor(payload, rel)
		upsert := registry.SequenceUpsert{
			SceneName:    scene,
			MapName:      mapName,
			SequenceName: trimSequenceExt(d.Name()),
			SequencePath: assetPathFor(payload.ContentRoot, rel),
		}
		if err := s.store.UpsertSequence(ctx, upsert); err != nil {
			return fmt.Errorf("index sequence %q: %w", upsert.SequenceName, err)
		}
		indexed++
		return nil
	})
	if walkErr != nil {
		return nil, Wrap(ErrExecutor, m.JobID, "scan sequences", "", walkErr)
	}

	s.logger.Info("sequence scan finished",
		logging.String(logging.FieldJobID, m.JobID),
		logging.Int("indexed", indexed))
	return &engine.Result{
		OutputDir: outputDir,
		Detail:    fmt.Sprintf("indexed %d sequences", indexed),
	}, nil
}

// resolveRoot maps an asset content root ("/Game/Scenes/Foo") onto the
// project content directory on disk.
func (s *SequenceScanner) resolveRoot(contentRoot string) (string, error) {
	if strings.TrimSpace(s.contentDir) == "" {
		return "", fmt.Errorf("content directory is not configured")
	}
	trimmed := strings.TrimPrefix(contentRoot, assetRootPrefix)
	trimmed = strings.Trim(strings.TrimPrefix(trimmed, "/"), "/")
	return filepath.Join(s.contentDir, filepath.FromSlash(trimmed)), nil
}

// identityFor derives the scene and map a sequence belongs to. An explicit
// payload scene wins; the map is the asset's parent directory.
func (s *SequenceScanner) identityFor(payload *manifest.ScanSequencesPayload, rel string) (string, string) {
	slashRel := filepath.ToSlash(rel)
	segments := strings.Split(slashRel, "/")

	scene := strings.TrimSpace(payload.SceneName)
	if scene == "" {
		if len(segments) > 1 {
			scene = segments[0]
		} else {
			scene = path.Base(strings.Trim(payload.ContentRoot, "/"))
		}
	}

	mapName := ""
	if len(segments) > 1 {
		mapName = segments[len(segments)-2]
	}
	if mapName == "" {
		mapName = scene
	}
	return scene, mapName
}

func assetPathFor(contentRoot, rel string) string {
	root := strings.TrimRight(contentRoot, "/")
	asset := trimSequenceExt(filepath.ToSlash(rel))
	return root + "/" + asset
}

func isSequenceAsset(name string) bool {
	return strings.HasPrefix(name, sequenceAssetPrefix) &&
		strings.HasSuffix(strings.ToLower(name), sequenceAssetExt)
}

// trimSequenceExt strips the asset extension regardless of its case, matching
// the case-insensitive suffix check in isSequenceAsset.
func trimSequenceExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), sequenceAssetExt) {
		return name[:len(name)-len(sequenceAssetExt)]
	}
	return name
}
