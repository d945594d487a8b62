// Command voca is a thin CLI surface over the streaming speech
// pipeline: wiring the adapter backends, the speaker library, and
// package pipeline together for file-mode transcription and speaker
// enrollment. CLI ergonomics are explicitly out of scope for the
// pipeline itself (spec.md §1) — this binary exists only to exercise
// it end to end.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/zhengyishen0/voca-app/adapter"
	"github.com/zhengyishen0/voca-app/asr"
	"github.com/zhengyishen0/voca-app/feature"
	"github.com/zhengyishen0/voca-app/internal/config"
	"github.com/zhengyishen0/voca-app/pipeline"
	"github.com/zhengyishen0/voca-app/speaker"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)
	cfg := config.Load()

	var err error
	switch cmd {
	case "transcribe":
		err = runTranscribe(cfg, flag.Args())
	case "enroll":
		err = runEnroll(cfg, flag.Args())
	case "bench":
		err = runBench(cfg, flag.Args())
	case "maintain":
		err = runMaintain(cfg, flag.Args())
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("voca %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: voca <transcribe|enroll|bench|maintain> [flags] <args>")
	fmt.Fprintln(os.Stderr, "  transcribe <pcm-file>          decode raw float32 16kHz mono PCM, print segments")
	fmt.Fprintln(os.Stderr, "  enroll <name> <pcm-file>       enroll a speaker from a PCM sample and save the library")
	fmt.Fprintln(os.Stderr, "  bench <pcm-file>               run the pipeline once, print wall-clock timing")
	fmt.Fprintln(os.Stderr, "  maintain                       cluster the Unknown pool into provisional profiles and confirm outliers")
}

func runTranscribe(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one PCM file argument")
	}
	samples, err := readPCM(args[0])
	if err != nil {
		return err
	}

	p, lib, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	loadLibraryIfPresent(lib, cfg.LibraryPath)

	ctx := context.Background()
	err = p.ProcessAudio(ctx, samples, func(seg pipeline.OutputSegment) {
		printSegment(seg)
	})
	if err != nil {
		return err
	}
	return p.Flush(ctx, func(seg pipeline.OutputSegment) {
		printSegment(seg)
	})
}

func runEnroll(cfg *config.Config, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("expected <name> <pcm-file>")
	}
	name, path := args[0], args[1]

	samples, err := readPCM(path)
	if err != nil {
		return err
	}

	speakerModel, err := buildSpeakerModel(cfg)
	if err != nil {
		return err
	}
	defer speakerModel.Close()

	embedding, err := speakerModel.Embed(context.Background(), samples)
	if err != nil {
		return fmt.Errorf("embed enrollment sample: %w", err)
	}

	lib := speaker.NewLibrary()
	loadLibraryIfPresent(lib, cfg.LibraryPath)

	if _, err := lib.Enroll(name, embedding); err != nil {
		return fmt.Errorf("enroll %q: %w", name, err)
	}
	if err := lib.Save(cfg.LibraryPath); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	log.Printf("enrolled %q, library saved to %s", name, cfg.LibraryPath)
	return nil
}

func runBench(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one PCM file argument")
	}
	samples, err := readPCM(args[0])
	if err != nil {
		return err
	}

	p, lib, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	loadLibraryIfPresent(lib, cfg.LibraryPath)

	start := time.Now()
	n := 0
	ctx := context.Background()
	if err := p.ProcessAudio(ctx, samples, func(pipeline.OutputSegment) { n++ }); err != nil {
		return err
	}
	if err := p.Flush(ctx, func(pipeline.OutputSegment) { n++ }); err != nil {
		return err
	}
	elapsed := time.Since(start)

	audioSec := float64(len(samples)) / float64(feature.SampleRate)
	log.Printf("processed %.2fs of audio in %v (%dx realtime), %d segments", audioSec, elapsed, int(audioSec/elapsed.Seconds()), n)
	return nil
}

// runMaintain drives the operator-invoked maintenance pass over the
// Unknown pool: cluster what's accumulated into provisional profiles,
// then sweep each profile's core and boundary buckets for outliers that have
// drifted since enrollment (spec.md §1, §4.F). There is no automatic
// trigger for this — it runs on whatever cadence the operator chooses.
func runMaintain(cfg *config.Config, args []string) error {
	lib := speaker.NewLibrary()
	loadLibraryIfPresent(lib, cfg.LibraryPath)

	clustered, err := lib.ClusterUnknowns(pipeline.DefaultClusterDistanceThreshold)
	if err != nil {
		return fmt.Errorf("cluster unknowns: %w", err)
	}
	if err := lib.ConfirmOutliers(); err != nil {
		return fmt.Errorf("confirm outliers: %w", err)
	}
	if err := lib.Save(cfg.LibraryPath); err != nil {
		return fmt.Errorf("save library: %w", err)
	}

	log.Printf("maintain: formed %d provisional cluster profile(s), library saved to %s", len(clustered), cfg.LibraryPath)
	return nil
}

func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, *speaker.Library, error) {
	vadModel, err := buildVADModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	asrModel, err := buildASRModel(cfg)
	if err != nil {
		return nil, nil, err
	}
	speakerModel, err := buildSpeakerModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	vocab, blankID, err := asr.LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load vocab: %w", err)
	}

	lib := speaker.NewLibrary()
	p := pipeline.New(vadModel, asrModel, speakerModel, lib, pipeline.Config{
		ModelKind: parseModelKind(cfg.ModelKind),
		Vocab:     vocab,
		BlankID:   blankID,
	})
	return p, lib, nil
}

func buildVADModel(cfg *config.Config) (adapter.VADModel, error) {
	if cfg.Backend == "sherpa" {
		return adapter.NewSherpaVADModel(adapter.SherpaVADConfig{
			ModelPath:  cfg.VADModelPath,
			SampleRate: feature.SampleRate,
			Threshold:  0.5,
			NumThreads: cfg.NumThreads,
			Provider:   cfg.Provider,
		})
	}
	return adapter.NewONNXVADModel(adapter.ONNXVADConfig{
		ModelPath:  cfg.VADModelPath,
		SampleRate: feature.SampleRate,
	})
}

// buildASRModel always uses the ONNX adapter: sherpa-onnx-go exposes
// no standalone CTC acoustic model contract (see DESIGN.md).
func buildASRModel(cfg *config.Config) (adapter.ASRModel, error) {
	vocab, _, err := asr.LoadVocab(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocab for ASR model sizing: %w", err)
	}
	return adapter.NewONNXASRModel(adapter.ONNXASRConfig{
		ModelPath: cfg.ASRModelPath,
		VocabSize: len(vocab),
	})
}

func buildSpeakerModel(cfg *config.Config) (adapter.SpeakerModel, error) {
	if cfg.Backend == "sherpa" {
		return adapter.NewSherpaSpeakerModel(adapter.SherpaSpeakerConfig{
			ModelPath:  cfg.SpeakerModelPath,
			NumThreads: cfg.NumThreads,
			Provider:   cfg.Provider,
		})
	}
	return adapter.NewONNXSpeakerModel(adapter.ONNXSpeakerConfig{
		ModelPath:    cfg.SpeakerModelPath,
		EmbeddingDim: feature.XVectorDim,
		Mel:          feature.DefaultMelConfig(),
	})
}

func parseModelKind(s string) asr.ModelKind {
	if s == "whisperTurbo" {
		return asr.KindWhisperTurbo
	}
	return asr.KindSenseVoice
}

func loadLibraryIfPresent(lib *speaker.Library, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := lib.Load(path); err != nil {
		log.Printf("voca: failed to load speaker library at %s: %v", path, err)
	}
}

func printSegment(seg pipeline.OutputSegment) {
	speakerName := "Unknown"
	if seg.SpeakerName != nil {
		speakerName = *seg.SpeakerName
	}
	fmt.Printf("[%6.2fs-%6.2fs] (%s, %s) %s\n", seg.StartSec, seg.EndSec, speakerName, seg.Confidence, seg.Text)
}

// readPCM reads a file of little-endian float32 samples: the
// already-decoded mono PCM the pipeline expects (spec.md §1 places
// file-format decoding out of scope).
func readPCM(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	n := info.Size() / 4
	samples := make([]float32, n)
	if err := binary.Read(f, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("read PCM samples: %w", err)
	}
	return samples, nil
}
