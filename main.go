/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"github.com/rotblauer/vtsproxy/cmd"
	"github.com/rotblauer/vtsproxy/gendem"
	"github.com/rotblauer/vtsproxy/genfactory"
)

// Generator kind factories are registered against genfactory.Default
// here, explicitly, before cmd.Execute runs -- not through
// package-level init() side effects in each generator kind's own
// package, which would make registration order depend on the import
// graph rather than this list.
func main() {
	genfactory.Default.Register(gendem.GeneratorType, gendem.NewFactory(nil), false)
	cmd.Execute()
}
