package mcpserver

// ChapterFormatContract describes how sealed chapters are stored in the vault.
const ChapterFormatContract = `# NovelCipher Chapter Format

Chapters live in the vault as ` + "`" + `chapters/chapter-NNN.md` + "`" + ` files.

## Structure

` + "```" + `markdown
---
chapter: 3                 # REQUIRED unless the file name ends in the number
title: The Lighthouse      # OPTIONAL, defaults to "Chapter 3"
tags:                      # OPTIONAL, YAML list
  - mystery
---
q83vEjRWeJBmZ2hpams...     # sealed payload, may be wrapped across lines
` + "```" + `

## Payload

1. The body is standard base64 (padded) of AES-256-CBC ciphertext with PKCS#7 padding.
2. Key and IV are the raw UTF-8 bytes of the configured 32 and 16 character secrets.
3. There is no salt header and no authentication tag.
4. The plaintext is UTF-8. Paragraphs are separated by one blank line.

## Rules

- Never write plaintext into a chapter body. Use the ` + "`" + `seal_chapter` + "`" + ` tool,
  which encrypts the text with the server's key material.
- Chapter numbers are unique across the vault.
- Readers receive the payload unchanged and decrypt it on their side.
`
