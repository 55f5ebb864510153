// Copyright © 2025 The dielvox authors.
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package main

import "github.com/js-arias/command"

func init() {
	app.Add(projectsGuide)
}

var projectsGuide = &command.Command{
	Usage: "projects",
	Short: "about project files",
	Long: `
Dielvox requires several files to read and process acoustic survey data. To
reduce the burden of keeping track of many files, a single project file is
used to hold the reference of all files required in the analysis. This guide
explains the structure of the file, but most of the time, the best and most
secure way to edit or view this file is by using dielvox commands.

A project file is a tab-delimited file with the following fields:

	- dataset  for the kind of file
	- path     for the path of the file

Here is an example file:

	# dielvox project files
	dataset	path
	observations	detections.tab
	species	species.tab
	sites	sites.tab
	templates	templates.tab
	trees	trees.tab

The valid file types are:

- Acoustic detections. Defined by the dataset keyword "observations". Each
  row is the number of detections of a species in a recorded audio segment,
  with its site, date, clock time, and time of day stratum. The recommended
  way to add detections is by using the command 'dielvox data add'.
- Species lookup. Defined by the dataset keyword "species". This file maps
  eBird species codes to scientific and common names.
- Taxonomic synonyms. Defined by the dataset keyword "synonyms". This file
  maps old scientific names to their accepted names, and is applied to every
  name before a join.
- Tree name reconciliation. Defined by the dataset keyword "treenames". This
  file maps analysis names to the tip labels used in the trees.
- Territoriality scores. Defined by the dataset keyword "territory". Scores
  are 1 (no territoriality), 2 (weak), or 3 (high).
- Sociality scores. Defined by the dataset keyword "sociality". Scores are 0
  (solo singers) or 1 (communal, that is duetting or chorusing species).
- Template detections. Defined by the dataset keyword "templates". Each row
  is a recognition template hit with its peak frequency; species with too few
  templates are excluded from the analysis.
- Trophic niches. Defined by the dataset keyword "traits". Fine trophic
  categories, collapsed by the niche policy of the 'dielvox prep' command.
- Sampling sites. Defined by the dataset keyword "sites". Site coordinates,
  IANA timezone, and habitat type.
- Time-calibrated trees. Defined by the dataset keyword "trees". This file
  contains one or more trees in the form of a tab-delimited file.
- Vocal activity table. Defined by the dataset keyword "activity". The
  assembled table written by the command 'dielvox prep'.
- Model definitions. Defined by the dataset keyword "models". A YAML file
  with regression model definitions; if absent, the default model is used.
	`,
}
