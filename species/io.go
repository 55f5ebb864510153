// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package species

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ReadTSV reads a species lookup table from a TSV file.
//
// The TSV file must contain the following fields:
//
//   - code, the eBird species code
//   - name, the scientific name of the species
//
// The field "common",
// with the common name of the species,
// is optional.
//
// Here is an example file:
//
//	code	name	common
//	inbrob1	Turdus simillimus	Indian Blackbird
//	purher1	Cinnyris asiaticus	Purple Sunbird
//	inrob1	Copsychus fulicatus	Indian Robin
func ReadTSV(r io.Reader) (*List, error) {
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
	for _, h := range []string{"code", "name"} {
		if _, ok := fields[h]; !ok {
			return nil, fmt.Errorf("expecting field %q", h)
		}
	}

	l := New()
	for {
		row, err := tab.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		ln, _ := tab.FieldPos(0)
		if err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}

		var common string
		if c, ok := fields["common"]; ok {
			common = row[c]
		}
		if err := l.Add(row[fields["code"]], row[fields["name"]], common); err != nil {
			return nil, fmt.Errorf("on row %d: %v", ln, err)
		}
	}
	return l, nil
}

// TSV writes a species lookup table as a TSV file.
func (l *List) TSV(w io.Writer) error {
	tab := csv.NewWriter(w)
	tab.Comma = '\t'
	tab.UseCRLF = true

	// header
	if err := tab.Write([]string{"code", "name", "common"}); err != nil {
		return fmt.Errorf("unable to write header: %v", err)
	}

	for _, c := range l.Codes() {
		tx := l.byCode[c]
		row := []string{
			tx.Code,
			tx.Name,
			tx.Common,
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
