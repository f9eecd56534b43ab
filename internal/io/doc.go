// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation and file writing
//   - Cover art resizing and format conversion
//
// # Filename Sanitization
//
// SanitizeFileName swaps characters that are illegal on some filesystems for
// lookalikes instead of deleting them, so titles stay readable:
//
//	safe := ioutils.SanitizeFileName("Book 10: The Emperor") // "Book 10꞉ The Emperor"
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Resize image to fit within 500x500
//	resized, _ := svc.ResizeImage(ctx, imageData, 500, 500)
//
//	// Convert to JPEG
//	jpeg, _ := svc.ConvertToJPEG(ctx, pngData)
package ioutils
