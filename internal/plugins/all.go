// Package plugins is the single explicit wiring point for every concrete
// plugin, replacing the reference's decorator-based registration
// (@register_task/@register_processor in core/decorators.py) with ordinary
// Go calls (spec.md §9). Call Register once per process, after
// constructing the shared Registry, StageTracker, and repositories.
package plugins

import (
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/registry"
	"github.com/jmylchreest/amm-core/internal/core/stagetracker"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
	"github.com/jmylchreest/amm-core/internal/plugins/processors"
	"github.com/jmylchreest/amm-core/internal/plugins/tasks"
	"github.com/jmylchreest/amm-core/internal/repository"
)

// Dependencies bundles the shared handles concrete plugin constructors
// close over. None of it is package-level/global state (spec.md §9).
type Dependencies struct {
	Files           *repository.FileRepository
	Artwork         *repository.ArtworkRepository
	Tracker         *stagetracker.Tracker
	Importer        tasks.ImporterConfig
	ScanCfg         processors.Config
	ArtworkCacheDir string
	LibraryDir      string
	Logger          *slog.Logger
}

// Register installs every audio utility, task, and processor plugin into
// reg. Returns the first registration error encountered (duplicate name or
// failed validation), matching spec.md §4.1.
func Register(reg *registry.Registry, deps Dependencies) error {
	scanner := audioutils.NewDirectoryScanner(nil)
	if err := reg.RegisterAudioUtility(scanner.Meta(), func() core.AudioUtility { return scanner }); err != nil {
		return err
	}

	mediaParser := audioutils.NewMediaParser()
	if err := reg.RegisterAudioUtility(mediaParser.Meta(), func() core.AudioUtility { return mediaParser }); err != nil {
		return err
	}

	fingerprinter := audioutils.NewFingerprinter()
	if err := reg.RegisterAudioUtility(fingerprinter.Meta(), func() core.AudioUtility { return fingerprinter }); err != nil {
		return err
	}

	mbClient, err := audioutils.NewMusicBrainzClient(deps.ArtworkCacheDir)
	if err != nil {
		return err
	}
	if err := reg.RegisterAudioUtility(mbClient.Meta(), func() core.AudioUtility { return mbClient }); err != nil {
		return err
	}

	tagWriter := audioutils.NewTagWriter()
	if err := reg.RegisterAudioUtility(tagWriter.Meta(), func() core.AudioUtility { return tagWriter }); err != nil {
		return err
	}

	if err := reg.RegisterTask(tasks.ImporterMeta(), tasks.NewImporter(deps.Importer, deps.Files, deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.ParserMeta(), tasks.NewParser(deps.Files, deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.FingerprinterMeta(), tasks.NewFingerprinter(deps.Files, deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.NormalizerMeta(), tasks.NewNormalizer(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.TrimmerMeta(), tasks.NewTrimmer(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.DeduperMeta(), tasks.NewDeduper(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.ConverterMeta(), tasks.NewConverter(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.ArtGetterMeta(), tasks.NewArtGetter(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.LyricsGetterMeta(), tasks.NewLyricsGetter(deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.TaggerMeta(), tasks.NewTagger(deps.Files, deps.Tracker, deps.Logger)); err != nil {
		return err
	}
	if err := reg.RegisterTask(tasks.SorterMeta(), tasks.NewSorter(deps.LibraryDir, deps.Files, deps.Tracker, deps.Logger)); err != nil {
		return err
	}

	scannerProc := processors.NewScanner(deps.ScanCfg, deps.Files, deps.Artwork, reg, deps.Logger)
	if err := reg.RegisterProcessor(processors.ScannerMeta(), func(utils []core.AudioUtility, kwargs map[string]any) (core.Processor, error) {
		return scannerProc, nil
	}); err != nil {
		return err
	}

	return nil
}
