// Package bashdisplay runs notebook-style bash cells and surfaces the images
// they ask to display.
package bashdisplay

// Version is the released version of bashdisplay.
const Version = "0.3.0"
