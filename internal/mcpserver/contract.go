package mcpserver

// NoteFormatContract describes Quill notes to LLM consumers: which fields
// exist, how saving treats them and how they are stored on disk.
const NoteFormatContract = `# Quill Note Format Contract

A Quill note is a small record: a title, free text, a list of tags and at most
one attached audio clip. Notes are listed newest first.

## Fields

| Field       | Type            | Notes                                                   |
|-------------|-----------------|---------------------------------------------------------|
| ` + "`id`" + `        | string          | Assigned on create. Never changes.                      |
| ` + "`title`" + `     | string          | Trimmed. A blank title is saved as "Untitled Note".     |
| ` + "`text`" + `      | string          | Trimmed. Plain text; Markdown is kept as written.       |
| ` + "`tags`" + `      | list of strings | Trimmed, case-sensitive, no blanks, no duplicates.      |
| ` + "`audioUri`" + `  | string or null  | Opaque clip reference. Never parsed.                    |
| ` + "`createdAt`" + ` | timestamp       | Assigned on create. Never changes.                      |
| ` + "`checksum`" + `  | string          | Changes on every edit. Pass it back to update_note.     |

## Rules

1. **A note must say something.** Create and update fail when title and text
   are both blank and no audio is attached. Tags alone do not count.
2. **Updates are partial.** update_note changes only the fields you pass.
   Pass ` + "`checksum`" + ` from read_note so a concurrent edit is not overwritten.
3. **Tags** are edited with add_tag and remove_tag. Adding a tag that is
   already present does nothing.
4. **Dictation** goes through append_transcript, which adds the text after a
   single space.
5. **Audio** is attached with attach_audio (base64 data URI) or by passing the
   ` + "`uri`" + ` returned from the HTTP upload endpoint as ` + "`audio_uri`" + `.
   An empty ` + "`audio_uri`" + ` detaches the clip.
6. **Deletion is permanent.**

## Storage

With the markdown driver each note is ` + "`notes/<id>.md`" + ` in the vault:

` + "```" + `markdown
---
id: 0192f1d4-6c1e-7a4b-9a51-1f2e3d4c5b6a
title: Weekly standup
tags:
    - meeting-notes
audio: /audio/0192f1d4-7000-7b00-8000-000000000001.m4a
created: 2026-01-20T09:30:00Z
---
Alice to review the design doc.
` + "```" + `

Files edited by hand are picked up automatically. A file without an ` + "`id`" + `
uses its file name; a file without a ` + "`title`" + ` uses its first ` + "`# heading`" + `.
`
