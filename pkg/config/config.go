// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/walteh/treesync/pkg/fsys"
	"github.com/walteh/treesync/pkg/fsys/backend"
	"github.com/walteh/treesync/pkg/fsys/cifs"
	"github.com/walteh/treesync/pkg/fsys/sftp"
	"github.com/walteh/treesync/pkg/resource"
	"github.com/walteh/treesync/pkg/text"
	"gitlab.com/tozd/go/errors"
)

// Parser decodes one job file format
type Parser interface {
	// 📝 Parse decodes the job from bytes, without validating it
	Parse(ctx context.Context, data []byte) (*Job, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

func Register(p Parser) {
	parsers = append(parsers, p)
}

func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 🔗 Endpoint is one side of the transfer
type Endpoint struct {
	Protocol   string `json:"protocol" yaml:"protocol" hcl:"protocol,optional"`
	Root       string `json:"root,omitempty" yaml:"root,omitempty" hcl:"root,optional"`
	Host       string `json:"host,omitempty" yaml:"host,omitempty" hcl:"host,optional"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty" hcl:"port,optional"`
	User       string `json:"user,omitempty" yaml:"user,omitempty" hcl:"user,optional"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty" hcl:"password,optional"`
	KeyFile    string `json:"key_file,omitempty" yaml:"key_file,omitempty" hcl:"key_file,optional"`
	KnownHosts string `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty" hcl:"known_hosts,optional"`
	Insecure   bool   `json:"insecure,omitempty" yaml:"insecure,omitempty" hcl:"insecure,optional"`
	Timeout    string `json:"timeout,omitempty" yaml:"timeout,omitempty" hcl:"timeout,optional"`
	Share      string `json:"share,omitempty" yaml:"share,omitempty" hcl:"share,optional"`
	Domain     string `json:"domain,omitempty" yaml:"domain,omitempty" hcl:"domain,optional"`
}

// 📝 Template configures the default renderer
type Template struct {
	Vars         map[string]string      `json:"vars,omitempty" yaml:"vars,omitempty" hcl:"vars,optional"`
	Replacements []text.ReplacementRule `json:"replacements,omitempty" yaml:"replacements,omitempty" hcl:"replacement,block"`
	TempDir      string                 `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty" hcl:"temp_dir,optional"`
}

// 📦 Resource is the file form of a resource specification
type Resource struct {
	Src                 string            `json:"src" yaml:"src" hcl:"src"`
	Dest                string            `json:"dest,omitempty" yaml:"dest,omitempty" hcl:"dest,optional"`
	DestName            string            `json:"dest_name,omitempty" yaml:"dest_name,omitempty" hcl:"dest_name,optional"`
	Match               string            `json:"match,omitempty" yaml:"match,omitempty" hcl:"match,optional"`
	Exclude             bool              `json:"exclude,omitempty" yaml:"exclude,omitempty" hcl:"exclude,optional"`
	Links               string            `json:"links,omitempty" yaml:"links,omitempty" hcl:"links,optional"`
	Behavior            string            `json:"behavior,omitempty" yaml:"behavior,omitempty" hcl:"behavior,optional"`
	Template            bool              `json:"template,omitempty" yaml:"template,omitempty" hcl:"template,optional"`
	FileAttributes      map[string]string `json:"file_attributes,omitempty" yaml:"file_attributes,omitempty" hcl:"file_attributes,optional"`
	DirectoryAttributes map[string]string `json:"directory_attributes,omitempty" yaml:"directory_attributes,omitempty" hcl:"directory_attributes,optional"`
}

// ⚙️ Job is a complete transfer description
type Job struct {
	Source      Endpoint   `json:"source" yaml:"source" hcl:"source,block"`
	Destination Endpoint   `json:"destination" yaml:"destination" hcl:"destination,block"`
	MaxPar      int        `json:"max_par,omitempty" yaml:"max_par,omitempty" hcl:"max_par,optional"`
	Template    *Template  `json:"template,omitempty" yaml:"template,omitempty" hcl:"template,block"`
	Resources   []Resource `json:"resources" yaml:"resources" hcl:"resource,block"`

	location string
}

// Location is the file the job was loaded from
func (j *Job) Location() string { return j.location }

// 📥 Load reads, parses and validates the job file at p
func Load(ctx context.Context, p string) (*Job, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", p).Msg("loading job")

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Errorf("reading job file: %w", err)
	}

	parser := GetParser(p)
	if parser == nil {
		return nil, errors.Errorf("no parser found for file: %s", p)
	}

	job, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing job: %w", err)
	}
	job.location = p

	if err := job.Validate(); err != nil {
		return nil, errors.Errorf("validating job %s: %w", p, err)
	}
	return job, nil
}

// ✅ Validate checks required fields, applies defaults and normalizes paths
func (j *Job) Validate() error {
	if err := j.Source.validate("source"); err != nil {
		return err
	}
	if err := j.Destination.validate("destination"); err != nil {
		return err
	}

	if j.MaxPar < 0 {
		return errors.Errorf("max_par must not be negative, got %d", j.MaxPar)
	}
	if j.MaxPar == 0 {
		j.MaxPar = 1
	}

	if j.Template != nil {
		if err := text.NewReplacer().ValidateRules(j.Template.Replacements); err != nil {
			return errors.Errorf("template: %w", err)
		}
		dir, err := homedir.Expand(j.Template.TempDir)
		if err != nil {
			return errors.Errorf("template.temp_dir: %w", err)
		}
		j.Template.TempDir = dir
	}

	if len(j.Resources) == 0 {
		return errors.Errorf("at least one resource is required")
	}
	for i := range j.Resources {
		if err := j.Resources[i].validate(); err != nil {
			return errors.Errorf("resource %d: %w", i, err)
		}
	}
	return nil
}

func (e *Endpoint) validate(name string) error {
	if e.Protocol == "" {
		e.Protocol = string(backend.ProtocolLocal)
	}
	e.Protocol = strings.ToLower(e.Protocol)

	switch backend.Protocol(e.Protocol) {
	case backend.ProtocolLocal:
	case backend.ProtocolSFTP:
		if e.Host == "" || e.User == "" {
			return errors.Errorf("%s: sftp needs host and user", name)
		}
	case backend.ProtocolCIFS:
		if e.Host == "" || e.Share == "" {
			return errors.Errorf("%s: cifs needs host and share", name)
		}
	default:
		return errors.Errorf("%s: %q: %w", name, e.Protocol, backend.ErrUnknownProtocol)
	}

	if e.Timeout != "" {
		if _, err := time.ParseDuration(e.Timeout); err != nil {
			return errors.Errorf("%s.timeout: %w", name, err)
		}
	}

	for _, field := range []*string{&e.KeyFile, &e.KnownHosts, &e.Root} {
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return errors.Errorf("%s: expanding %q: %w", name, *field, err)
		}
		*field = expanded
	}
	return nil
}

func (r *Resource) validate() error {
	if r.Src == "" {
		return errors.Errorf("src is required")
	}
	if r.Dest == "" && !r.Exclude {
		return errors.Errorf("dest is required")
	}

	r.Src = path.Clean(r.Src)
	if r.Dest != "" {
		r.Dest = path.Clean(r.Dest)
	}
	if r.Match == "" {
		r.Match = resource.DefaultMatch
	}
	if r.Links == "" {
		r.Links = resource.KeepLinks.String()
	}
	if r.Behavior == "" {
		r.Behavior = resource.OverwriteIfSrcNewer.String()
	}

	spec, err := r.Specification()
	if err != nil {
		return err
	}
	return spec.Validate()
}

// Specification converts r, it expects r to be validated
func (r *Resource) Specification() (*resource.Specification, error) {
	links, err := resource.ParseLinkOption(r.Links)
	if err != nil {
		return nil, err
	}
	behavior, err := resource.ParseTransferBehavior(r.Behavior)
	if err != nil {
		return nil, err
	}

	return &resource.Specification{
		SrcBaseDir:          r.Src,
		DestBaseDir:         r.Dest,
		DestName:            r.DestName,
		Match:               r.Match,
		Exclude:             r.Exclude,
		FileAttributes:      attributes(r.FileAttributes),
		DirectoryAttributes: attributes(r.DirectoryAttributes),
		LinkOption:          links,
		TransferBehavior:    behavior,
		Template:            r.Template,
	}, nil
}

func attributes(m map[string]string) fsys.Attributes {
	if len(m) == 0 {
		return nil
	}
	out := make(fsys.Attributes, len(m))
	for k, v := range m {
		out[fsys.AttributeKind(k)] = v
	}
	return out
}

// Specifications converts every resource in file order
func (j *Job) Specifications() ([]*resource.Specification, error) {
	specs := make([]*resource.Specification, 0, len(j.Resources))
	for i := range j.Resources {
		spec, err := j.Resources[i].Specification()
		if err != nil {
			return nil, errors.Errorf("resource %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Backend converts e into a backend endpoint
func (e Endpoint) Backend() backend.Endpoint {
	var timeout time.Duration
	if e.Timeout != "" {
		timeout, _ = time.ParseDuration(e.Timeout)
	}

	return backend.Endpoint{
		Protocol: backend.Protocol(e.Protocol),
		Root:     e.Root,
		SFTP: sftp.Config{
			Host:           e.Host,
			Port:           e.Port,
			User:           e.User,
			Password:       e.Password,
			KeyFile:        e.KeyFile,
			KnownHostsFile: e.KnownHosts,
			Insecure:       e.Insecure,
			Timeout:        timeout,
		},
		CIFS: cifs.Config{
			Host:     e.Host,
			Port:     e.Port,
			User:     e.User,
			Password: e.Password,
			Domain:   e.Domain,
			Share:    e.Share,
			Root:     e.Root,
		},
	}
}

// RendererOptions builds the default renderer configuration
func (j *Job) RendererOptions() text.RendererOptions {
	if j.Template == nil {
		return text.RendererOptions{}
	}
	vars := make(map[string]any, len(j.Template.Vars))
	for k, v := range j.Template.Vars {
		vars[k] = v
	}
	return text.RendererOptions{
		Vars:    vars,
		Rules:   j.Template.Replacements,
		TempDir: j.Template.TempDir,
	}
}

// #️⃣ Hash fingerprints the job, credentials excluded
func (j *Job) Hash() string {
	redacted := *j
	redacted.Source.Password = ""
	redacted.Destination.Password = ""

	data, err := json.Marshal(redacted)
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

func (j *Job) String() string {
	return fmt.Sprintf("%s -> %s (%d resources)", j.Source.Backend(), j.Destination.Backend(), len(j.Resources))
}
