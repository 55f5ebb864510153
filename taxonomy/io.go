// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package taxonomy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadSynonyms reads a synonym table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - synonym, the out of date scientific name
//   - accepted, the name accepted by the analysis
//
// Here is an example file:
//
//	synonym	accepted
//	Anthus rufulus	Anthus richardi
//	Dendrocitta leucogastra	Dendrocitta vagabunda
//	Dicrurus paradiseus	Dicrurus macrocercus
func ReadSynonyms(r io.Reader) (*Synonyms, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range []string{"synonym", "accepted"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	s := NewSynonyms()
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		s.Add(row[fields["synonym"]], row[fields["accepted"]])
	}
	return s, nil
}

// TSV writes a synonym table as a TSV file.
func (s *Synonyms) TSV(w io.Writer) error {
	tab := csv.NewWriter(w)
	tab.Comma = '\t'
	tab.UseCRLF = true

	// header
	if err := tab.Write([]string{"synonym", "accepted"}); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}

	for _, n := range s.Names() {
		row := []string{
			n,
			s.pairs[n],
		}
		if err := tab.Write(row); err != nil {
			return fmt.Errorf("when writing data: %v", err)
		}
	}

	tab.Flush()
	if err := tab.Error(); err != nil {
		return fmt.Errorf("when writing data: %v", err)
	}
	return nil
}

// ReadTreeNames reads a tree name table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - name, the scientific name used by the analysis
//   - tip, the label of the corresponding tree tip
//
// Here is an example file:
//
//	name	tip
//	Turdus simillimus	Turdus_merula
//	Cinnyris asiaticus	Nectarinia_asiatica
func ReadTreeNames(r io.Reader) (*TreeNames, error) {
	tab := csv.NewReader(r)
	tab.Comma = '\t'
	tab.Comment = '#'

	head, err := tab.Read()
	if err != nil {
		return nil, fmt.Errorf("while reading header: %v", err)
	}
	fields := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(h)
		fields[h] = i
	}
	for _, h := range []string{"name", "tip"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	t := NewTreeNames()
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		t.Add(row[fields["name"]], row[fields["tip"]])
	}
	return t, nil
}
