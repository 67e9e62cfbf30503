// Package artifact turns a selected session into files on disk: a
// directory of per-channel CSV files plus metadata.json, zipped into a
// single archive in the storage directory and streamed back to clients.
//
// The pipeline is Generate, then Pack, then Deliver. Pack always removes
// the working directory, so a repeated download regenerates it from the
// session record and overwrites the archive under the same name.
package artifact
