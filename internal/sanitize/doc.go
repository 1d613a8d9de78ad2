// Package sanitize turns user-submitted issue markdown into publishable HTML.
//
// Processing a body runs these steps in order:
//  1. lines holding unselected checklist items are removed
//  2. runs of three or more newlines are collapsed to one blank line
//  3. the markdown is rendered to HTML with goldmark
//  4. the HTML is filtered through a bluemonday allow-list policy
//  5. phone numbers, national ID numbers and e-mail addresses are redacted
//
// Image URLs are collected from the raw markdown and from the sanitized HTML.
// A body that cannot be rendered still produces output: the redacted raw
// text with no images.
package sanitize
