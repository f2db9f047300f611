package main

import "delskim/config"

func testConfig() *config.Config {
	return &config.Config{
		Workers:   1,
		XsecPath:  "data/cross_sections.txt",
		ServeAddr: "tcp://127.0.0.1:5555",
	}
}
