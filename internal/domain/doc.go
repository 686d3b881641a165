// Package domain holds the shared types of the tropospheric correction
// engine: acquisition dates, gridded fields, and the error taxonomy.
//
// # Date conventions
//
// A SAR acquisition is identified by its timestamp. The master acquisition
// carries a full date and time ("20160623T1755" or RFC 3339); slave
// acquisitions are usually known only by day ("20160613" or "2016-06-13")
// because every scene in a stack is acquired at the same local time. Two
// acquisitions belong to the same epoch when they share a calendar day, so
// the canonical key for caches and lookups is the YYYYMMDD day string.
//
// Interferogram files are named <master>_<slave>.nc with both dates in
// YYYYMMDD form. Weather radar scans live under Year/Month directories as
// YYYYMMDDHHMM.nc; reanalysis snapshots are flat YYYYMMDDHHMM.nc files.
//
// # Fields
//
// A Field is a 2-D raster on a rectilinear latitude/longitude grid, stored
// row-major with latitude as the slow axis. Missing data is NaN, never zero:
// a zero is a legitimate physical value for phase, rainfall, and delay alike.
package domain
