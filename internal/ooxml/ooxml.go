// Package ooxml provides the minimal Office Open XML package plumbing shared
// by the presentation and word-processing adapters: reading a package into
// memory, resolving embedding relationships to their media parts, and writing
// a modified copy back out.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/beevik/etree"
)

// Package is an OOXML file opened for in-memory mutation. Part order from the
// source archive is preserved on save.
type Package struct {
	names []string
	parts map[string][]byte
}

// Open reads every part of the archive at p into memory.
func Open(p string) (*Package, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	defer zr.Close()

	pkg := &Package{parts: make(map[string][]byte)}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", f.Name, err)
		}
		pkg.names = append(pkg.names, f.Name)
		pkg.parts[f.Name] = data
	}
	return pkg, nil
}

// Part returns the raw bytes of the named part.
func (p *Package) Part(name string) ([]byte, bool) {
	data, ok := p.parts[name]
	return data, ok
}

// SetPart replaces the content of an existing part or appends a new one.
func (p *Package) SetPart(name string, data []byte) {
	if _, ok := p.parts[name]; !ok {
		p.names = append(p.names, name)
	}
	p.parts[name] = data
}

// Names returns the part names in archive order.
func (p *Package) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// SaveAs writes the package to a new file. The source file is untouched.
func (p *Package) SaveAs(dest string) error {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range p.names {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create part %s: %w", name, err)
		}
		if _, err := w.Write(p.parts[name]); err != nil {
			return fmt.Errorf("write part %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return os.WriteFile(dest, buf.Bytes(), 0o644)
}

// Rels parses the relationship part belonging to partName (its sibling
// _rels/<base>.rels) and returns a map of relationship id to resolved part
// name, e.g. "rId2" -> "ppt/media/image1.png".
func (p *Package) Rels(partName string) (map[string]string, error) {
	dir, base := path.Split(partName)
	relsName := dir + "_rels/" + base + ".rels"

	data, ok := p.parts[relsName]
	if !ok {
		return nil, fmt.Errorf("no relationship part %s", relsName)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsName, err)
	}

	rels := make(map[string]string)
	for _, rel := range doc.FindElements("//Relationship") {
		id := rel.SelectAttrValue("Id", "")
		target := rel.SelectAttrValue("Target", "")
		if id == "" || target == "" {
			continue
		}
		// Targets are relative to the part's directory; "../media/x" from
		// ppt/slides/ resolves to ppt/media/x. A leading slash makes the
		// target package-absolute instead.
		if rest, ok := strings.CutPrefix(target, "/"); ok {
			rels[id] = path.Clean(rest)
		} else {
			rels[id] = path.Clean(path.Join(dir, target))
		}
	}
	return rels, nil
}
