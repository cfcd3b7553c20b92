// This package defines tools for keeping a GeoJSON feature collection and a directory of media files
// in agreement: reconciling and renaming files against "filename" properties, stripping embedded
// metadata from images, exporting a hosted image listing and reformatting species datasets.
package media
