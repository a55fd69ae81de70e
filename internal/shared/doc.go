// Package shared holds code used across packages that belongs to no single
// layer. Its testutil subpackage provides the buffered slog handler and the
// workbook fixtures the package tests build survey exports from.
package shared
