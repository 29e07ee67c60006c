package ios

import (
	"context"
	"fmt"
	"path"
	"sort"

	"github.com/beevik/etree"
	"github.com/platinummonkey/cog/pkg/assets"
	"github.com/platinummonkey/cog/pkg/platform"
	"github.com/platinummonkey/cog/pkg/product"
	"github.com/platinummonkey/cog/pkg/xmlwriter"
	"github.com/sirupsen/logrus"
)

const (
	// ArtifactDependencies names the pod dependency XML reported to the artifact writer
	ArtifactDependencies = "ios-dependencies"

	// DependenciesRelativePath is where the pod XML lands under a product's assets root
	DependenciesRelativePath = "Editor/IosDependencies.xml"

	dependenciesHeader = "DONT MODIFY HERE. AUTO GENERATED DEPENDENCIES FROM IosPlatformPreBuildProcessor.cs"
)

// CollectPods merges pod dependencies by name, last one wins, sorted by name
func CollectPods(configs []*platform.IosConfiguration) []platform.PodDependency {
	merged := make(map[string]platform.PodDependency)
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		for _, pod := range cfg.Pods {
			if pod.Name == "" {
				continue
			}
			merged[pod.Name] = pod
		}
	}

	pods := make([]platform.PodDependency, 0, len(merged))
	for _, pod := range merged {
		pods = append(pods, pod)
	}
	sort.Slice(pods, func(i, j int) bool { return pods[i].Name < pods[j].Name })
	return pods
}

// DependenciesDocument builds the pod dependency XML
func DependenciesDocument(pods []platform.PodDependency) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateComment(dependenciesHeader)

	list := doc.CreateElement("dependencies").CreateElement("iosPods")
	for _, pod := range pods {
		el := list.CreateElement("iosPod")
		el.CreateAttr("name", pod.Name)
		if pod.Version != "" {
			el.CreateAttr("version", pod.Version)
		}
	}
	return doc
}

// RenderDependencies returns the bytes of the pod dependency XML
func RenderDependencies(pods []platform.PodDependency) ([]byte, error) {
	return xmlwriter.Bytes(DependenciesDocument(pods), xmlwriter.DefaultOptions())
}

// WriteDependenciesXML renders pods and writes them to path
func WriteDependenciesXML(ctx context.Context, w assets.ArtifactWriter, path string, pods []platform.PodDependency) (bool, error) {
	data, err := RenderDependencies(pods)
	if err != nil {
		return false, err
	}
	return w.WriteArtifact(ctx, ArtifactDependencies, path, data)
}

// DependenciesPath returns the pod XML path for a product assets root
func DependenciesPath(assetsRoot string) string {
	return path.Join(product.NormalizePath(assetsRoot), DependenciesRelativePath)
}

// Report summarizes one pre-build run
type Report struct {
	Configurations int
	Pods           int
	Written        []string
	Unchanged      []string
}

// Processor generates the iOS pre-build artifacts of a product
type Processor struct {
	store  *assets.Store
	writer assets.ArtifactWriter
	log    *logrus.Logger
}

// NewProcessor creates a processor. A nil writer writes files directly.
func NewProcessor(store *assets.Store, writer assets.ArtifactWriter, log *logrus.Logger) *Processor {
	if writer == nil {
		writer = assets.DirectWriter{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Processor{store: store, writer: writer, log: log}
}

// ProcessAll resolves the editable iOS configurations of a product and
// writes its pod dependency XML. An empty assetsRoot is a no-op.
func (p *Processor) ProcessAll(ctx context.Context, templateRoot, assetsRoot string) (*Report, error) {
	report := &Report{}
	if assetsRoot == "" {
		return report, nil
	}

	configs, err := Configurations(ctx, p.store, templateRoot, assetsRoot)
	if err != nil {
		return nil, err
	}
	report.Configurations = len(configs)

	pods := CollectPods(configs)
	report.Pods = len(pods)

	out := DependenciesPath(assetsRoot)
	written, err := WriteDependenciesXML(ctx, p.writer, p.store.Abs(out), pods)
	if err != nil {
		return nil, err
	}
	if written {
		report.Written = append(report.Written, out)
	} else {
		report.Unchanged = append(report.Unchanged, out)
	}
	p.log.Debugf("[IosPlatformPreBuildProcessor] %d pods from %d configurations", len(pods), len(configs))

	return report, nil
}

// Configurations resolves the editable iOS configurations of a product
func Configurations(ctx context.Context, store *assets.Store, templateRoot, assetsRoot string) ([]*platform.IosConfiguration, error) {
	entries, err := platform.GetOrCreateEditableConfigs[platform.IosConfiguration](ctx, store, templateRoot, assetsRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ios configurations: %w", err)
	}

	configs := make([]*platform.IosConfiguration, 0, len(entries))
	for _, e := range entries {
		configs = append(configs, e.Asset)
	}
	return configs, nil
}
