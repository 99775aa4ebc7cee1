// Package catalog defines the model records published to the mobile app and
// the CSV parser that produces them.
//
// Overview
//
// A catalog is an ordered list of Model records. It is authored as a CSV file
// with the columns displayName, apiModel, isAvailable and order (in any
// order, extra columns ignored) and published as the "list" field of a single
// remote document.
//
// Parsing
//
// Rows are parsed independently. A row whose order is not a base-10 integer,
// or whose displayName or apiModel is empty, is skipped and reported as a
// RowError; the remaining rows are still returned. isAvailable never fails:
// tokens outside the truthy set simply parse as false.
//
//	result, err := catalog.ParseFile("models.csv")
//	if err != nil {
//	    return err
//	}
//	for _, w := range result.Warnings {
//	    fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
//	}
//
// Records come back in file order. Sorting by Order is left to the consumer.
package catalog
