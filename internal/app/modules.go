package app

import (
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/modules/exec"
	"github.com/specialistvlad/buildgridgo/modules/file"
	"github.com/specialistvlad/buildgridgo/modules/http"
	"github.com/specialistvlad/buildgridgo/modules/print"
	"github.com/specialistvlad/buildgridgo/modules/socketio"
)

// coreModules is the definitive list of all action modules compiled into
// the buildgrid binary.
var coreModules = []registry.Module{
	&print.Module{},
	&exec.Module{},
	&file.Module{},
	&http.Module{},
	&socketio.Module{},
}
