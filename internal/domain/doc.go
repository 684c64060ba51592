// Package domain models City of Toronto ChemTRAC chemical-release data and
// the reference tables used to score it.
//
// # Data Source
//
// Release records originate from the ChemTRAC open-data CSV (one row per
// facility-chemical pair), published yearly by Toronto Public Health. Each row
// carries the facility identity, its NAICS industry description, WGS-84
// coordinates, and the mass released per environmental pathway:
//
//	REL_AIR, REL_WATER, REL_LAND, REL_DISPOSAL, REL_RECYCLING  (kg/year)
//
// A positive cell in any of those columns becomes one ChemicalRelease with the
// matching Pathway. Zero cells are dropped at ingestion.
//
// # Reference Tables
//
// Two static tables are embedded as YAML and loaded once at process start:
//
//   - Toxicity weights (0-100) per chemical, with carcinogen and heavy-metal
//     flags, keyed by canonicalized name. Weights follow EPA IRIS and IARC
//     tiering: mercury 100 down to hydrogen chloride 55, with a curated alias
//     list for naming variants ("chromium (vi)" vs "hexavalent chromium").
//     Unrecognized chemicals resolve to the table's median weight so an
//     unmapped name never zeroes out a real release.
//
//   - Sensitive receptors: hospitals, childcare centres, schools, universities
//     and high-density residential zones around Toronto, each with a category
//     weight. Hospitals and childcare weigh highest.
//
// # Proximity Model
//
// Receptor nearness amplifies risk through a piecewise distance decay on the
// haversine great-circle distance: full category weight within 1 km, linear
// falloff to zero at 5 km. Contributions sum across receptors and the
// resulting multiplier is capped at 2.0 so clustered downtown receptors
// cannot compound without bound. The multiplier never drops below 1.0.
package domain
