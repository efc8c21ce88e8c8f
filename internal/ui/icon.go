package ui

// iconBytes is a 16x16 PNG used as the tray icon.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x3d, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0xd0, 0xd0, 0xb1, 0xf9,
	0x4f, 0x09, 0x66, 0x00, 0x11, 0x1f, 0x3e, 0x7c, 0x05, 0x63, 0x62, 0x35,
	0x21, 0xab, 0xa7, 0x8e, 0x01, 0xc8, 0xf8, 0x7f, 0x83, 0x03, 0x5e, 0x8c,
	0xd5, 0x0b, 0x14, 0x1b, 0x80, 0xec, 0x24, 0x62, 0x0c, 0xc0, 0x1b, 0x06,
	0x64, 0x19, 0x30, 0x1a, 0x06, 0x83, 0x2d, 0x0c, 0x06, 0x3e, 0x2f, 0x90,
	0x8a, 0x01, 0xe6, 0xdb, 0x36, 0x6f, 0x0c, 0xa8, 0x78, 0xa3, 0x00, 0x00,
	0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
