// Package pmm implements the kernel's physical page allocator.
//
// # Overview
//
// The allocator tracks every page frame of the machine with one bit
// (1 = used). It is created once at boot from the boot loader's memory map:
//
//  1. DetectMemory sums the reported regions into MemTotal/MemAvailable and
//     derives MaxPages.
//  2. The whole bitmap is marked used.
//  3. Regions reported as available are freed, aligned inward to whole pages.
//  4. The kernel image, the kernel stack and the bitmap's own backing bytes
//     are marked used again.
//  5. Frames 0 (descriptor table) and 16 (boot information) are reserved
//     permanently; no Free may ever touch them.
//
// # Allocation
//
// Alloc performs a first-fit search for a contiguous run of free frames.
// Words of the bitmap that are entirely used are skipped in one step, and a
// failed candidate run resumes after the used frame that broke it. Allocated
// pages are zeroed through the attached physmem device.
//
// Every public operation validates its arguments (they arrive from the
// library OS through the syscall boundary) and reports failures as errors;
// nothing panics.
//
// # Thread Safety
//
// Allocator methods take a single mutex for their full duration.
package pmm
